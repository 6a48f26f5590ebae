package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/service"
	st "github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

var _ = Describe("Recovery Service", Ordered, func() {
	var (
		s        st.Store
		gormDB   *gorm.DB
		jobCache *cache.MemoryCache
		svc      *service.RecoveryService
	)

	BeforeAll(func() {
		s, gormDB = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		jobCache = cache.NewMemoryCache()
		svc = service.NewRecoveryService(s, jobCache, service.JobConfig{CacheTTL: time.Hour})
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM report_jobs;")
		gormDB.Exec("DELETE FROM payments;")
		gormDB.Exec("DELETE FROM assessments;")
	})

	It("rebuilds cache entries for pending ledger rows", func() {
		assessment := createAssessment(s)
		payment := createPayment(s, assessment.ID)
		job, err := s.Job().Create(context.TODO(), model.NewReportJob(
			uuid.New(), assessment.ID, payment.ID, nil, 3))
		Expect(err).To(BeNil())

		result, err := svc.RestoreMissingJobs(context.TODO(), 10)
		Expect(err).To(BeNil())
		Expect(result.Scanned).To(Equal(1))
		Expect(result.Restored).To(Equal(1))
		Expect(result.Requeued).To(Equal(0))

		state, err := jobCache.GetJob(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(state.Status).To(Equal(model.JobStatusPending))
		Expect(state.AssessmentID).To(Equal(assessment.ID))
		Expect(state.Progress.ArtifactGenerated).To(BeFalse())
	})

	It("requeues a processing row whose cache entry died with its worker", func() {
		assessment := createAssessment(s)
		payment := createPayment(s, assessment.ID)
		job := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
		job.Status = model.JobStatusProcessing
		job.Attempts = 1
		_, err := s.Job().Create(context.TODO(), job)
		Expect(err).To(BeNil())

		result, err := svc.RestoreMissingJobs(context.TODO(), 10)
		Expect(err).To(BeNil())
		Expect(result.Restored).To(Equal(1))
		Expect(result.Requeued).To(Equal(1))

		row, err := s.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(row.Status).To(Equal(model.JobStatusPending))
		Expect(row.Attempts).To(Equal(1))

		state, err := jobCache.GetJob(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(state.Status).To(Equal(model.JobStatusPending))
	})

	It("leaves live cache entries untouched", func() {
		assessment := createAssessment(s)
		payment := createPayment(s, assessment.ID)
		job, err := s.Job().Create(context.TODO(), model.NewReportJob(
			uuid.New(), assessment.ID, payment.ID, nil, 3))
		Expect(err).To(BeNil())

		existing := &cache.JobState{
			ID:           job.ID,
			AssessmentID: assessment.ID,
			PaymentID:    payment.ID,
			Status:       model.JobStatusProcessing,
			Attempts:     2,
			MaxAttempts:  3,
			Progress:     cache.Progress{TotalStages: 2, ArtifactGenerated: true},
		}
		Expect(jobCache.SetJob(context.TODO(), existing, time.Hour)).To(BeNil())

		result, err := svc.RestoreMissingJobs(context.TODO(), 10)
		Expect(err).To(BeNil())
		Expect(result.Scanned).To(Equal(1))
		Expect(result.Restored).To(Equal(0))
		Expect(result.Requeued).To(Equal(0))

		state, err := jobCache.GetJob(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(state.Progress.ArtifactGenerated).To(BeTrue())
		Expect(state.Attempts).To(Equal(2))
	})

	It("never touches terminal rows", func() {
		assessment := createAssessment(s)
		payment := createPayment(s, assessment.ID)
		for _, status := range []string{model.JobStatusCompleted, model.JobStatusFailed} {
			job := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
			job.Status = status
			_, err := s.Job().Create(context.TODO(), job)
			Expect(err).To(BeNil())
		}

		result, err := svc.RestoreMissingJobs(context.TODO(), 10)
		Expect(err).To(BeNil())
		Expect(result.Scanned).To(Equal(0))
		Expect(result.Restored).To(Equal(0))
	})
})
