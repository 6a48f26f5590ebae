package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
	"github.com/Gthorpe2274/mocha-emig/pkg/metrics"
)

const defaultRecoveryBatch = 100

// RecoveryService reconciles the volatile job cache against the ledger after
// cache loss. It only ever recreates state the ledger vouches for; it never
// invents jobs and never touches terminal rows.
type RecoveryService struct {
	store  store.Store
	cache  cache.Cache
	cfg    JobConfig
	logger *log.StructuredLogger
}

func NewRecoveryService(store store.Store, cache cache.Cache, cfg JobConfig) *RecoveryService {
	return &RecoveryService{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: log.NewDebugLogger("recovery_service"),
	}
}

// RecoveryResult reports one reconciliation pass.
type RecoveryResult struct {
	Scanned  int `json:"scanned"`
	Restored int `json:"restored"`
	Requeued int `json:"requeued"`
	Errors   int `json:"errors"`
}

// RestoreMissingJobs scans up to limit live ledger rows and rebuilds any
// cache entry that has been lost. A processing row with no cache entry means
// its worker died mid-run, so it is also requeued as pending; the stage flags
// died with the cache entry and both stages rerun from scratch.
func (s *RecoveryService) RestoreMissingJobs(ctx context.Context, limit int) (RecoveryResult, error) {
	if limit <= 0 {
		limit = defaultRecoveryBatch
	}
	logger := s.logger.WithContext(ctx)
	tracer := logger.Operation("restore_missing_jobs").
		WithInt("limit", limit).
		Build()

	result := RecoveryResult{}
	jobs, err := s.store.Job().ListByStatus(ctx, []string{model.JobStatusPending, model.JobStatusProcessing}, limit)
	if err != nil {
		tracer.Error(err).Log()
		return result, fmt.Errorf("listing live jobs: %w", err)
	}

	for i := range jobs {
		result.Scanned++
		job := &jobs[i]

		_, err := s.cache.GetJob(ctx, job.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, cache.ErrMiss) {
			result.Errors++
			tracer.Error(err).WithUUID("job_id", job.ID).Log()
			continue
		}

		if job.Status == model.JobStatusProcessing {
			pending := model.JobStatusPending
			if _, err := s.store.Job().Update(ctx, job.ID, &pending, nil, nil); err != nil {
				result.Errors++
				tracer.Error(err).WithUUID("job_id", job.ID).WithString("step", "requeue").Log()
				continue
			}
			job.Status = model.JobStatusPending
			result.Requeued++
		}

		state := &cache.JobState{
			ID:           job.ID,
			AssessmentID: job.AssessmentID,
			PaymentID:    job.PaymentID,
			Email:        job.Email,
			Status:       job.Status,
			Attempts:     job.Attempts,
			MaxAttempts:  job.MaxAttempts,
			Progress:     cache.Progress{TotalStages: totalStages},
			CreatedAt:    job.CreatedAt,
		}
		if job.Error != nil {
			state.Error = *job.Error
		}

		if err := s.cache.SetJob(ctx, state, s.cfg.CacheTTL); err != nil {
			result.Errors++
			tracer.Error(err).WithUUID("job_id", job.ID).WithString("step", "restore").Log()
			continue
		}
		result.Restored++
	}

	if result.Restored > 0 {
		metrics.IncreaseCacheEntriesRestoredMetric(result.Restored)
	}

	tracer.Success().
		WithInt("scanned", result.Scanned).
		WithInt("restored", result.Restored).
		WithInt("requeued", result.Requeued).
		WithInt("errors", result.Errors).
		Log()
	return result, nil
}
