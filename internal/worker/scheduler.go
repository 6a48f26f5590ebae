package worker

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/Gthorpe2274/mocha-emig/internal/config"
	"github.com/Gthorpe2274/mocha-emig/internal/service"
)

// Scheduler drives the three periodic sweeps. Each loop is serial: a tick
// that fires while the previous sweep is still running waits for it, so a
// slow batch can never stack concurrent sweeps. The tickers are jittered to
// keep replicas from synchronizing their sweeps.
type Scheduler struct {
	jobs      *service.JobService
	recovery  *service.RecoveryService
	retention *service.RetentionService
	cfg       *config.Config
}

func NewScheduler(
	jobs *service.JobService,
	recovery *service.RecoveryService,
	retention *service.RetentionService,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		jobs:      jobs,
		recovery:  recovery,
		retention: retention,
		cfg:       cfg,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger := zap.S().Named("scheduler")
	logger.Infow("starting scheduler",
		"process_interval", s.cfg.Pipeline.ProcessInterval,
		"recovery_interval", s.cfg.Pipeline.RecoveryInterval,
		"retention_interval", s.cfg.Pipeline.RetentionInterval,
	)

	go s.loop(ctx, s.cfg.Pipeline.ProcessInterval, s.processPending)
	go s.loop(ctx, s.cfg.Pipeline.RecoveryInterval, s.restoreMissing)
	go s.loop(ctx, s.cfg.Pipeline.RetentionInterval, s.sweepRetention)

	<-ctx.Done()
	logger.Info("scheduler terminated")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 20})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) processPending(ctx context.Context) {
	result, err := s.jobs.ProcessPending(ctx, s.cfg.Pipeline.BatchSize)
	if err != nil {
		zap.S().Named("scheduler").Errorw("pending sweep failed", "error", err)
		return
	}
	if result.Swept > 0 {
		zap.S().Named("scheduler").Infow("pending sweep",
			"swept", result.Swept, "completed", result.Completed, "failed", result.Failed)
	}
}

func (s *Scheduler) restoreMissing(ctx context.Context) {
	result, err := s.recovery.RestoreMissingJobs(ctx, s.cfg.Pipeline.RecoveryBatch)
	if err != nil {
		zap.S().Named("scheduler").Errorw("recovery sweep failed", "error", err)
		return
	}
	if result.Restored > 0 || result.Requeued > 0 {
		zap.S().Named("scheduler").Infow("recovery sweep",
			"scanned", result.Scanned, "restored", result.Restored, "requeued", result.Requeued)
	}
}

func (s *Scheduler) sweepRetention(ctx context.Context) {
	stats, err := s.retention.Sweep(ctx, time.Now().UTC(), s.cfg.Pipeline.RetentionBatch)
	if err != nil {
		zap.S().Named("scheduler").Errorw("retention sweep failed", "error", err)
		return
	}
	if stats.AssessmentsDeleted > 0 {
		zap.S().Named("scheduler").Infow("retention sweep",
			"assessments_deleted", stats.AssessmentsDeleted,
			"reports_deleted", stats.ReportsDeleted,
			"blobs_deleted", stats.BlobsDeleted)
	}
}
