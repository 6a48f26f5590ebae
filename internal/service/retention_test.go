package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/service"
	st "github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

var _ = Describe("Retention Service", Ordered, func() {
	var (
		s         st.Store
		gormDB    *gorm.DB
		jobCache  *cache.MemoryCache
		blobStore *blob.MemoryStore
		svc       *service.RetentionService
	)

	BeforeAll(func() {
		s, gormDB = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		jobCache = cache.NewMemoryCache()
		blobStore = blob.NewMemoryStore()
		svc = service.NewRetentionService(s, jobCache, blobStore)
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM reports;")
		gormDB.Exec("DELETE FROM report_jobs;")
		gormDB.Exec("DELETE FROM payments;")
		gormDB.Exec("DELETE FROM assessments;")
	})

	// expiredAssessmentGraph builds an expired assessment with one payment,
	// one completed job with a live cache entry, one report row and its blob.
	expiredAssessmentGraph := func() (*model.Assessment, *model.Report, uuid.UUID) {
		assessment := createExpiredAssessment(s)
		payment := createPayment(s, assessment.ID)

		job := model.NewReportJob(uuid.New(), assessment.ID, payment.ID, nil, 3)
		job.Status = model.JobStatusCompleted
		created, err := s.Job().Create(context.TODO(), job)
		Expect(err).To(BeNil())
		Expect(jobCache.SetJob(context.TODO(), &cache.JobState{
			ID:           created.ID,
			AssessmentID: assessment.ID,
			Status:       model.JobStatusCompleted,
		}, time.Hour)).To(BeNil())

		report, err := s.Report().Create(context.TODO(), model.NewReport(
			uuid.New(), assessment.ID, payment.ID, []byte(`{}`),
			uuid.NewString()+uuid.NewString(), time.Now().Add(time.Hour)))
		Expect(err).To(BeNil())
		Expect(blobStore.Put(context.TODO(), report.BlobKey(), []byte("pdf"), time.Hour)).To(BeNil())

		return assessment, report, created.ID
	}

	Context("Sweep", func() {
		It("purges an expired assessment and everything hanging off it", func() {
			assessment, report, jobID := expiredAssessmentGraph()

			stats, err := svc.Sweep(context.TODO(), time.Now(), 10)
			Expect(err).To(BeNil())
			Expect(stats.AssessmentsDeleted).To(Equal(1))
			Expect(stats.ReportsDeleted).To(Equal(1))
			Expect(stats.BlobsDeleted).To(Equal(1))
			Expect(stats.Errors).To(Equal(0))

			_, err = s.Assessment().Get(context.TODO(), assessment.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
			_, err = s.Job().Get(context.TODO(), jobID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
			reports, err := s.Report().ListByAssessment(context.TODO(), assessment.ID)
			Expect(err).To(BeNil())
			Expect(reports).To(BeEmpty())

			_, err = jobCache.GetJob(context.TODO(), jobID)
			Expect(err).To(MatchError(cache.ErrMiss))
			_, err = blobStore.Get(context.TODO(), report.BlobKey())
			Expect(err).To(MatchError(blob.ErrNotFound))
			Expect(blobStore.Len()).To(Equal(0))
		})

		It("still deletes the rows when blob deletion fails", func() {
			assessment, _, jobID := expiredAssessmentGraph()

			svc = service.NewRetentionService(s, jobCache, &failingBlobStore{
				Store:     blobStore,
				deleteErr: errors.New("bucket policy denied"),
			})

			stats, err := svc.Sweep(context.TODO(), time.Now(), 10)
			Expect(err).To(BeNil())
			Expect(stats.AssessmentsDeleted).To(Equal(1))
			Expect(stats.ReportsDeleted).To(Equal(1))
			Expect(stats.BlobsDeleted).To(Equal(0))
			Expect(stats.Errors).To(Equal(1))

			_, err = s.Assessment().Get(context.TODO(), assessment.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
			_, err = s.Job().Get(context.TODO(), jobID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
			_, err = jobCache.GetJob(context.TODO(), jobID)
			Expect(err).To(MatchError(cache.ErrMiss))
		})

		It("leaves unexpired assessments alone", func() {
			expiredAssessmentGraph()
			keep := createAssessment(s)

			stats, err := svc.Sweep(context.TODO(), time.Now(), 10)
			Expect(err).To(BeNil())
			Expect(stats.AssessmentsDeleted).To(Equal(1))

			_, err = s.Assessment().Get(context.TODO(), keep.ID)
			Expect(err).To(BeNil())
		})

		It("honors the batch limit", func() {
			for i := 0; i < 3; i++ {
				expiredAssessmentGraph()
			}

			stats, err := svc.Sweep(context.TODO(), time.Now(), 2)
			Expect(err).To(BeNil())
			Expect(stats.AssessmentsDeleted).To(Equal(2))

			remaining, err := s.Assessment().ListExpired(context.TODO(), time.Now(), 10)
			Expect(err).To(BeNil())
			Expect(remaining).To(HaveLen(1))
		})
	})

	Context("Stats", func() {
		It("summarizes the retention posture", func() {
			createExpiredAssessment(s)
			createAssessment(s)

			stats, err := svc.Stats(context.TODO(), time.Now())
			Expect(err).To(BeNil())
			Expect(stats.TotalAssessments).To(Equal(int64(2)))
			Expect(stats.ExpiredAssessments).To(Equal(int64(1)))
		})
	})

	Context("ExtendRetention", func() {
		It("pushes the horizon out by whole months", func() {
			assessment := createAssessment(s)
			before, err := s.Assessment().Get(context.TODO(), assessment.ID)
			Expect(err).To(BeNil())

			updated, err := svc.ExtendRetention(context.TODO(), assessment.ID, 6)
			Expect(err).To(BeNil())
			Expect(updated.RetentionExpiresAt.UTC()).To(
				BeTemporally("~", before.RetentionExpiresAt.AddDate(0, 6, 0).UTC(), time.Second))
		})

		It("rejects non-positive extensions", func() {
			assessment := createAssessment(s)
			_, err := svc.ExtendRetention(context.TODO(), assessment.ID, 0)
			Expect(err).ToNot(BeNil())
		})

		It("returns a typed error for an unknown assessment", func() {
			_, err := svc.ExtendRetention(context.TODO(), uuid.New(), 3)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})
})
