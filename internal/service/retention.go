package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
	"github.com/Gthorpe2274/mocha-emig/pkg/metrics"
)

const defaultSweepBatch = 50

// RetentionService purges assessments whose retention horizon has passed,
// together with everything hanging off them.
type RetentionService struct {
	store  store.Store
	cache  cache.Cache
	blobs  blob.Store
	logger *log.StructuredLogger
}

func NewRetentionService(store store.Store, cache cache.Cache, blobs blob.Store) *RetentionService {
	return &RetentionService{
		store:  store,
		cache:  cache,
		blobs:  blobs,
		logger: log.NewDebugLogger("retention_service"),
	}
}

// SweepStats reports one retention pass.
type SweepStats struct {
	AssessmentsDeleted int `json:"assessmentsDeleted"`
	ReportsDeleted     int `json:"reportsDeleted"`
	BlobsDeleted       int `json:"blobsDeleted"`
	Errors             int `json:"errors"`
}

// Sweep deletes up to limit expired assessments, oldest horizon first. Each
// assessment is purged independently so one failed purge never blocks the
// rest of the batch.
func (s *RetentionService) Sweep(ctx context.Context, now time.Time, limit int) (SweepStats, error) {
	if limit <= 0 {
		limit = defaultSweepBatch
	}
	logger := s.logger.WithContext(ctx)
	tracer := logger.Operation("retention_sweep").
		WithInt("limit", limit).
		Build()

	stats := SweepStats{}
	expired, err := s.store.Assessment().ListExpired(ctx, now, limit)
	if err != nil {
		tracer.Error(err).Log()
		return stats, fmt.Errorf("listing expired assessments: %w", err)
	}

	for i := range expired {
		if err := s.purgeAssessment(ctx, &expired[i], &stats, tracer); err != nil {
			stats.Errors++
			tracer.Error(err).WithUUID("assessment_id", expired[i].ID).Log()
			continue
		}
		stats.AssessmentsDeleted++
	}

	if stats.AssessmentsDeleted > 0 {
		metrics.IncreaseRetentionDeletedMetric(stats.AssessmentsDeleted)
	}

	tracer.Success().
		WithInt("assessments_deleted", stats.AssessmentsDeleted).
		WithInt("reports_deleted", stats.ReportsDeleted).
		WithInt("blobs_deleted", stats.BlobsDeleted).
		WithInt("errors", stats.Errors).
		Log()
	return stats, nil
}

// purgeAssessment removes one assessment and its dependents. Blob and cache
// deletes are best-effort: a backend failure is logged and counted, never
// allowed to keep the personal data in the ledger rows past the retention
// horizon. Blobs carry their own TTL, so a skipped delete still expires. The
// row deletes run in a single transaction, children before parent.
func (s *RetentionService) purgeAssessment(ctx context.Context, assessment *model.Assessment, stats *SweepStats, tracer *log.Tracer) error {
	reports, err := s.store.Report().ListByAssessment(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	for i := range reports {
		if err := s.blobs.Delete(ctx, reports[i].BlobKey()); err != nil {
			stats.Errors++
			tracer.Error(err).
				WithUUID("assessment_id", assessment.ID).
				WithString("blob_key", reports[i].BlobKey()).
				Log()
			continue
		}
		stats.BlobsDeleted++
	}

	jobs, err := s.store.Job().ListByAssessment(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	for i := range jobs {
		if err := s.cache.DeleteJob(ctx, jobs[i].ID); err != nil {
			stats.Errors++
			tracer.Error(err).
				WithUUID("job_id", jobs[i].ID).
				WithString("step", "cache_evict").
				Log()
		}
	}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return fmt.Errorf("opening transaction: %w", err)
	}

	if err := s.deleteRows(ctx, assessment.ID); err != nil {
		if _, rollbackErr := store.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rollbackErr)
		}
		return err
	}

	if _, err := store.Commit(ctx); err != nil {
		return fmt.Errorf("committing purge: %w", err)
	}

	stats.ReportsDeleted += len(reports)
	return nil
}

func (s *RetentionService) deleteRows(ctx context.Context, assessmentID uuid.UUID) error {
	if err := s.store.Report().DeleteByAssessment(ctx, assessmentID); err != nil {
		return fmt.Errorf("deleting reports: %w", err)
	}
	if err := s.store.Payment().DeleteByAssessment(ctx, assessmentID); err != nil {
		return fmt.Errorf("deleting payments: %w", err)
	}
	if err := s.store.Job().DeleteByAssessment(ctx, assessmentID); err != nil {
		return fmt.Errorf("deleting jobs: %w", err)
	}
	if err := s.store.Assessment().Delete(ctx, assessmentID); err != nil {
		return fmt.Errorf("deleting assessment: %w", err)
	}
	return nil
}

// Stats reports the retention posture of the ledger.
func (s *RetentionService) Stats(ctx context.Context, now time.Time) (model.RetentionStats, error) {
	return s.store.Assessment().RetentionStats(ctx, now)
}

// ExtendRetention pushes an assessment's retention horizon out by the given
// number of months from its current horizon.
func (s *RetentionService) ExtendRetention(ctx context.Context, id uuid.UUID, months int) (*model.Assessment, error) {
	if months <= 0 {
		return nil, fmt.Errorf("retention extension must be a positive number of months, got %d", months)
	}

	assessment, err := s.store.Assessment().Get(ctx, id)
	if err != nil {
		if err == store.ErrRecordNotFound {
			return nil, NewErrAssessmentNotFound(id)
		}
		return nil, fmt.Errorf("loading assessment: %w", err)
	}

	extended := assessment.RetentionExpiresAt.AddDate(0, months, 0)
	updated, err := s.store.Assessment().UpdateRetention(ctx, id, extended)
	if err != nil {
		return nil, fmt.Errorf("extending retention: %w", err)
	}

	s.logger.WithContext(ctx).Operation("extend_retention").
		WithUUID("assessment_id", id).
		WithInt("months", months).
		WithString("new_horizon", extended.Format(time.RFC3339)).
		Build().
		Success().Log()
	return updated, nil
}
