package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/config"
	st "github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

func newTestStore() (st.Store, *gorm.DB) {
	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file:store_test?mode=memory&cache=shared"

	db, err := st.InitDB(cfg)
	Expect(err).To(BeNil())

	s := st.NewStore(db)
	Expect(s.InitialMigration()).To(BeNil())
	return s, db
}

func createAssessment(s st.Store, retentionExpiresAt time.Time) *model.Assessment {
	assessment, err := s.Assessment().Create(context.TODO(), model.NewAssessment(
		uuid.New(), "Portugal", "Lisbon", []byte(`{"climate":"warm"}`), nil, retentionExpiresAt))
	Expect(err).To(BeNil())
	return assessment
}

func createPayment(s st.Store, assessmentID uuid.UUID) *model.Payment {
	payment, err := s.Payment().Create(context.TODO(), model.Payment{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		ProviderRef:  "pi_test",
		AmountCents:  4900,
		Currency:     "USD",
		Status:       model.PaymentStatusConfirmed,
	})
	Expect(err).To(BeNil())
	return payment
}

var _ = Describe("Store", Ordered, func() {
	var (
		s      st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		s, gormDB = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM reports;")
		gormDB.Exec("DELETE FROM report_jobs;")
		gormDB.Exec("DELETE FROM payments;")
		gormDB.Exec("DELETE FROM assessments;")
	})

	Context("transaction", func() {
		It("commits an insert", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			assessmentID := uuid.New()
			_, err = s.Assessment().Create(ctx, model.NewAssessment(
				assessmentID, "Spain", "Valencia", nil, nil, time.Now().AddDate(2, 0, 0)))
			Expect(err).To(BeNil())

			_, err = st.Commit(ctx)
			Expect(err).To(BeNil())

			found, err := s.Assessment().Get(context.TODO(), assessmentID)
			Expect(err).To(BeNil())
			Expect(found.DestinationCountry).To(Equal("Spain"))
		})

		It("rolls back an insert", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			assessmentID := uuid.New()
			_, err = s.Assessment().Create(ctx, model.NewAssessment(
				assessmentID, "Spain", "Valencia", nil, nil, time.Now().AddDate(2, 0, 0)))
			Expect(err).To(BeNil())

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())

			_, err = s.Assessment().Get(context.TODO(), assessmentID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("job store", func() {
		It("creates a pending job and reads it back", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)

			job, err := s.Job().Create(context.TODO(), model.NewReportJob(
				uuid.New(), assessment.ID, payment.ID, nil, 3))
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.Attempts).To(Equal(0))

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.AssessmentID).To(Equal(assessment.ID))
			Expect(found.MaxAttempts).To(Equal(3))
		})

		It("updates only the requested fields", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)
			job, err := s.Job().Create(context.TODO(), model.NewReportJob(
				uuid.New(), assessment.ID, payment.ID, nil, 3))
			Expect(err).To(BeNil())

			status := model.JobStatusProcessing
			attempts := 1
			_, err = s.Job().Update(context.TODO(), job.ID, &status, &attempts, nil)
			Expect(err).To(BeNil())

			found, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(found.Status).To(Equal(model.JobStatusProcessing))
			Expect(found.Attempts).To(Equal(1))
			Expect(found.MaxAttempts).To(Equal(3))
		})

		It("returns not found when updating a missing job", func() {
			status := model.JobStatusFailed
			_, err := s.Job().Update(context.TODO(), uuid.New(), &status, nil, nil)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("lists jobs by status oldest first", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)

			first := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
			first.CreatedAt = time.Now().Add(-2 * time.Hour)
			second := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
			second.CreatedAt = time.Now().Add(-1 * time.Hour)
			done := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
			done.Status = model.JobStatusCompleted

			for _, j := range []model.ReportJob{second, done, first} {
				_, err := s.Job().Create(context.TODO(), j)
				Expect(err).To(BeNil())
			}

			jobs, err := s.Job().ListByStatus(context.TODO(), []string{model.JobStatusPending}, 10)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
			Expect(jobs[0].ID).To(Equal(first.ID))
			Expect(jobs[1].ID).To(Equal(second.ID))
		})

		It("counts jobs by status", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)
			for i := 0; i < 3; i++ {
				_, err := s.Job().Create(context.TODO(), model.NewReportJob(
					uuid.New(), assessment.ID, payment.ID, nil, 3))
				Expect(err).To(BeNil())
			}

			count, err := s.Job().CountByStatus(context.TODO(), model.JobStatusPending)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))
		})
	})

	Context("report store", func() {
		It("finds a report by its token", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)

			report, err := s.Report().Create(context.TODO(), model.NewReport(
				uuid.New(), assessment.ID, payment.ID, []byte(`{}`), "tok123", time.Now().Add(time.Hour)))
			Expect(err).To(BeNil())

			found, err := s.Report().GetByToken(context.TODO(), "tok123")
			Expect(err).To(BeNil())
			Expect(found.ID).To(Equal(report.ID))
			Expect(found.BlobKey()).To(Equal("reports/" + report.ID.String() + ".pdf"))
		})

		It("returns not found for an unknown token", func() {
			_, err := s.Report().GetByToken(context.TODO(), "missing")
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("rejects duplicate tokens", func() {
			assessment := createAssessment(s, time.Now().AddDate(2, 0, 0))
			payment := createPayment(s, assessment.ID)

			_, err := s.Report().Create(context.TODO(), model.NewReport(
				uuid.New(), assessment.ID, payment.ID, []byte(`{}`), "duplicated", time.Now().Add(time.Hour)))
			Expect(err).To(BeNil())

			_, err = s.Report().Create(context.TODO(), model.NewReport(
				uuid.New(), assessment.ID, payment.ID, []byte(`{}`), "duplicated", time.Now().Add(time.Hour)))
			Expect(err).To(MatchError(st.ErrDuplicateKey))
		})
	})

	Context("assessment retention", func() {
		It("lists expired assessments oldest horizon first", func() {
			old := createAssessment(s, time.Now().Add(-48*time.Hour))
			older := createAssessment(s, time.Now().Add(-96*time.Hour))
			createAssessment(s, time.Now().AddDate(2, 0, 0))

			expired, err := s.Assessment().ListExpired(context.TODO(), time.Now(), 10)
			Expect(err).To(BeNil())
			Expect(expired).To(HaveLen(2))
			Expect(expired[0].ID).To(Equal(older.ID))
			Expect(expired[1].ID).To(Equal(old.ID))
		})

		It("honors the batch limit", func() {
			for i := 0; i < 5; i++ {
				createAssessment(s, time.Now().Add(-time.Hour))
			}

			expired, err := s.Assessment().ListExpired(context.TODO(), time.Now(), 2)
			Expect(err).To(BeNil())
			Expect(expired).To(HaveLen(2))
		})

		It("extends the retention horizon", func() {
			horizon := time.Now().AddDate(2, 0, 0).Truncate(time.Second).UTC()
			assessment := createAssessment(s, horizon)

			updated, err := s.Assessment().UpdateRetention(context.TODO(), assessment.ID, horizon.AddDate(0, 6, 0))
			Expect(err).To(BeNil())
			Expect(updated.RetentionExpiresAt.UTC()).To(Equal(horizon.AddDate(0, 6, 0)))
		})

		It("computes retention stats", func() {
			createAssessment(s, time.Now().Add(-time.Hour))
			createAssessment(s, time.Now().AddDate(2, 0, 0))

			stats, err := s.Assessment().RetentionStats(context.TODO(), time.Now())
			Expect(err).To(BeNil())
			Expect(stats.TotalAssessments).To(Equal(int64(2)))
			Expect(stats.ExpiredAssessments).To(Equal(int64(1)))
			Expect(stats.OldestExpiredAt).ToNot(BeNil())
			Expect(stats.NextExpiryAt).ToNot(BeNil())
		})
	})
})
