package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/service"
	st "github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

var _ = Describe("Download Service", Ordered, func() {
	var (
		s         st.Store
		gormDB    *gorm.DB
		blobStore *blob.MemoryStore
		svc       *service.DownloadService
	)

	BeforeAll(func() {
		s, gormDB = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		blobStore = blob.NewMemoryStore()
		svc = service.NewDownloadService(s, blobStore)
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM reports;")
		gormDB.Exec("DELETE FROM payments;")
		gormDB.Exec("DELETE FROM assessments;")
	})

	createReport := func(token string, tokenExpiresAt time.Time) *model.Report {
		assessment := createAssessment(s)
		payment := createPayment(s, assessment.ID)
		report, err := s.Report().Create(context.TODO(), model.NewReport(
			uuid.New(), assessment.ID, payment.ID,
			[]byte(`{"title":"Relocation Report: Portugal","country":"Portugal"}`),
			token, tokenExpiresAt))
		Expect(err).To(BeNil())
		return report
	}

	It("serves the PDF for a live token", func() {
		report := createReport("live-token", time.Now().Add(time.Hour))
		Expect(blobStore.Put(context.TODO(), report.BlobKey(), []byte("%PDF-1.7"), time.Hour)).To(BeNil())

		download, err := svc.GetByToken(context.TODO(), "live-token")
		Expect(err).To(BeNil())
		Expect(download.Data).To(Equal([]byte("%PDF-1.7")))
		Expect(download.Filename).To(Equal("relocation-report-portugal.pdf"))
	})

	It("rejects an expired token even when the blob still exists", func() {
		report := createReport("stale-token", time.Now().Add(-time.Minute))
		Expect(blobStore.Put(context.TODO(), report.BlobKey(), []byte("%PDF-1.7"), time.Hour)).To(BeNil())

		_, err := svc.GetByToken(context.TODO(), "stale-token")
		Expect(err).To(BeAssignableToTypeOf(&service.ErrTokenExpired{}))
	})

	It("rejects an unknown token", func() {
		_, err := svc.GetByToken(context.TODO(), "no-such-token")
		Expect(err).To(BeAssignableToTypeOf(&service.ErrReportNotFound{}))
	})

	It("treats a row without its blob as gone", func() {
		createReport("orphan-token", time.Now().Add(time.Hour))

		_, err := svc.GetByToken(context.TODO(), "orphan-token")
		Expect(err).To(BeAssignableToTypeOf(&service.ErrReportNotFound{}))
	})
})
