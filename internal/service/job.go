package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/generator"
	"github.com/Gthorpe2274/mocha-emig/internal/notify"
	"github.com/Gthorpe2274/mocha-emig/internal/renderer"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
	"github.com/Gthorpe2274/mocha-emig/pkg/metrics"
)

// Stage names recorded in the progress cursor.
const (
	StageArtifact = "generate_artifact"
	StageFinalize = "finalize"

	totalStages = 2
)

// Processing outcomes used for metrics and sweep accounting.
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomeNotFound  = "not_found"
)

type JobConfig struct {
	MaxAttempts       int
	BatchSize         int
	CacheTTL          time.Duration
	BlobTTL           time.Duration
	TokenTTL          time.Duration
	GenerationTimeout time.Duration
	RenderTimeout     time.Duration
	BaseURL           string
}

// JobService owns the report-generation job lifecycle: enqueueing at payment
// confirmation, the per-job stage state machine, and the progress query. The
// ledger row is authoritative for existence and terminal status; the cache
// entry carries the stage cursor between invocations.
type JobService struct {
	store     store.Store
	cache     cache.Cache
	blobs     blob.Store
	generator generator.Generator
	renderer  renderer.Renderer
	notifier  notify.Notifier
	cfg       JobConfig
	logger    *log.StructuredLogger
}

func NewJobService(
	store store.Store,
	cache cache.Cache,
	blobs blob.Store,
	generator generator.Generator,
	renderer renderer.Renderer,
	notifier notify.Notifier,
	cfg JobConfig,
) *JobService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &JobService{
		store:     store,
		cache:     cache,
		blobs:     blobs,
		generator: generator,
		renderer:  renderer,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log.NewDebugLogger("job_service"),
	}
}

// Enqueue creates exactly one pending job for a confirmed payment and returns
// its id without waiting for processing. The ledger insert is the durable
// commit point; the cache write is best-effort and rebuilt by the recovery
// reconciler if lost.
func (s *JobService) Enqueue(ctx context.Context, assessmentID, paymentID uuid.UUID, email *string) (uuid.UUID, error) {
	logger := s.logger.WithContext(ctx)
	tracer := logger.Operation("enqueue_job").
		WithUUID("assessment_id", assessmentID).
		WithUUID("payment_id", paymentID).
		WithBool("has_email", email != nil).
		Build()

	if _, err := s.store.Assessment().Get(ctx, assessmentID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return uuid.Nil, NewErrAssessmentNotFound(assessmentID)
		}
		return uuid.Nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	payment, err := s.store.Payment().Get(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return uuid.Nil, NewErrPaymentNotFound(paymentID)
		}
		return uuid.Nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment.AssessmentID != assessmentID {
		return uuid.Nil, NewErrPaymentMismatch(paymentID, assessmentID)
	}

	job := model.NewReportJob(uuid.New(), assessmentID, paymentID, email, s.cfg.MaxAttempts)
	created, err := s.store.Job().Create(ctx, job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}

	tracer.Step("job_created_in_ledger").WithUUID("job_id", created.ID).Log()

	state := s.stateFromRow(created)
	if err := s.cache.SetJob(ctx, state, s.cfg.CacheTTL); err != nil {
		// The reconciler rebuilds the entry from the ledger row.
		tracer.Error(err).WithString("step", "cache_write").Log()
	}

	tracer.Success().WithUUID("job_id", created.ID).Log()
	return created.ID, nil
}

// Process runs one pass of the job state machine. All stage outcomes are
// recorded in the ledger and cache; nothing escapes to the caller except the
// processed boolean.
func (s *JobService) Process(ctx context.Context, id uuid.UUID) bool {
	logger := s.logger.WithContext(ctx)
	tracer := logger.Operation("process_job").
		WithUUID("job_id", id).
		Build()

	state, err := s.loadState(ctx, id)
	if err != nil {
		tracer.Error(err).Log()
		metrics.IncreaseJobsProcessedMetric(OutcomeNotFound)
		return false
	}

	switch state.Status {
	case model.JobStatusCompleted:
		// Terminal; re-invocation is a no-op.
		tracer.Success().WithString("outcome", "already_completed").Log()
		return true
	case model.JobStatusFailed:
		tracer.Error(errors.New(state.Error)).WithString("outcome", "already_failed").Log()
		return false
	}

	// A worker that crashes on its final attempt leaves a row the reconciler
	// requeues as pending with no attempts left. Claiming it would push
	// attempts past the ceiling, so it fails here instead.
	if state.Attempts >= state.MaxAttempts {
		s.recordStageFailure(ctx, state,
			fmt.Errorf("attempts exhausted (%d/%d)", state.Attempts, state.MaxAttempts), tracer)
		return false
	}

	// Claim: pending -> processing, attempts += 1, checkpointed before any
	// stage work so a concurrent sweep sees the row as taken.
	state.Status = model.JobStatusProcessing
	state.Attempts++
	if state.Progress.TotalStages == 0 {
		state.Progress.TotalStages = totalStages
	}
	if err := s.checkpoint(ctx, state); err != nil {
		tracer.Error(err).WithString("step", "claim").Log()
		return false
	}
	tracer.Step("claimed").WithInt("attempt", state.Attempts).Log()

	if err := s.runStages(ctx, state, tracer); err != nil {
		s.recordStageFailure(ctx, state, err, tracer)
		return false
	}

	state.Status = model.JobStatusCompleted
	state.Error = ""
	if err := s.checkpoint(ctx, state); err != nil {
		// Stage flags are persisted; the next pass re-reads them and only
		// replays the terminal status write.
		tracer.Error(err).WithString("step", "final_checkpoint").Log()
		return false
	}

	metrics.IncreaseJobsProcessedMetric(OutcomeCompleted)
	tracer.Success().WithInt("attempts", state.Attempts).Log()
	return true
}

// SweepResult aggregates one bounded batch of processing passes.
type SweepResult struct {
	Swept     int `json:"swept"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ProcessPending processes up to limit pending jobs serially, oldest first.
// Jobs are independent; one job's failure never aborts the batch.
func (s *JobService) ProcessPending(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = s.cfg.BatchSize
	}

	result := SweepResult{}
	jobs, err := s.store.Job().ListByStatus(ctx, []string{model.JobStatusPending}, limit)
	if err != nil {
		return result, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	for _, job := range jobs {
		result.Swept++
		if s.Process(ctx, job.ID) {
			result.Completed++
		} else {
			result.Failed++
		}
	}

	if pending, err := s.store.Job().CountByStatus(ctx, model.JobStatusPending); err == nil {
		metrics.UpdatePendingJobsMetric(int(pending))
	}

	return result, nil
}

func (s *JobService) runStages(ctx context.Context, state *cache.JobState, tracer *log.Tracer) error {
	if !state.Progress.ArtifactGenerated {
		if err := s.runArtifactStage(ctx, state); err != nil {
			metrics.IncreaseStageFailuresMetric(StageArtifact)
			return err
		}
		// Checkpoint before finalize so a crash between stages loses nothing.
		if err := s.checkpointCache(ctx, state); err != nil {
			return fmt.Errorf("checkpointing artifact stage: %w", err)
		}
		tracer.Step("artifact_generated").Log()
	} else {
		tracer.Step("artifact_stage_skipped").Log()
	}

	if !state.Progress.PDFGenerated {
		if err := s.runFinalizeStage(ctx, state); err != nil {
			metrics.IncreaseStageFailuresMetric(StageFinalize)
			return err
		}
		if err := s.checkpointCache(ctx, state); err != nil {
			return fmt.Errorf("checkpointing finalize stage: %w", err)
		}
		tracer.Step("report_finalized").Log()
	} else {
		tracer.Step("finalize_stage_skipped").Log()
	}

	return nil
}

func (s *JobService) runArtifactStage(ctx context.Context, state *cache.JobState) error {
	assessment, err := s.store.Assessment().Get(ctx, state.AssessmentID)
	if err != nil {
		return fmt.Errorf("loading assessment for generation: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	doc, err := s.generator.Generate(genCtx, assessment)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("content generation timed out after %s: %w", s.cfg.GenerationTimeout, err)
		}
		// Rate-limit errors pass through verbatim so operators can tell
		// provider throttling from logic bugs.
		return err
	}

	state.Progress.Document = doc
	state.Progress.ArtifactGenerated = true
	state.Progress.CurrentStage = 1
	state.Progress.CompletedStages = append(state.Progress.CompletedStages, StageArtifact)
	return nil
}

func (s *JobService) runFinalizeStage(ctx context.Context, state *cache.JobState) error {
	if state.Progress.Document == nil {
		return fmt.Errorf("finalize stage reached without a generated document")
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	pdf, err := s.renderer.Render(renderCtx, state.Progress.Document)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("rendering timed out after %s: %w", s.cfg.RenderTimeout, err)
		}
		return err
	}

	report, err := s.persistReport(ctx, state, pdf)
	if err != nil {
		return err
	}

	state.Progress.PDFGenerated = true
	state.Progress.CurrentStage = 2
	state.Progress.CompletedStages = append(state.Progress.CompletedStages, StageFinalize)

	if state.Email != nil && s.notifier != nil {
		notification := notify.ReportNotification{
			AssessmentID: state.AssessmentID.String(),
			Country:      state.Progress.Document.Country,
			DownloadURL:  s.cfg.BaseURL + "/api/v1/reports/" + report.DownloadToken,
			ExpiresAt:    report.TokenExpiresAt,
		}
		if err := s.notifier.Send(ctx, *state.Email, notification); err != nil {
			// Notification failure never fails the job.
			s.logger.WithContext(ctx).Operation("notify_report_ready").
				WithUUID("job_id", state.ID).
				Build().
				Error(err).Log()
		}
	}

	return nil
}

// persistReport writes the report row, mints the download token and stores
// the rendered bytes. A row left over from an earlier interrupted finalize
// pass for the same payment is reused so the token is only issued once.
func (s *JobService) persistReport(ctx context.Context, state *cache.JobState, pdf []byte) (*model.Report, error) {
	existing, err := s.store.Report().ListByAssessment(ctx, state.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("checking existing reports: %w", err)
	}
	for i := range existing {
		if existing[i].PaymentID == state.PaymentID {
			if err := s.blobs.Put(ctx, existing[i].BlobKey(), pdf, s.cfg.BlobTTL); err != nil {
				return nil, fmt.Errorf("storing report blob: %w", err)
			}
			return &existing[i], nil
		}
	}

	document, err := json.Marshal(state.Progress.Document)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}

	token, err := generateDownloadToken()
	if err != nil {
		return nil, fmt.Errorf("minting download token: %w", err)
	}

	report := model.NewReport(
		uuid.New(),
		state.AssessmentID,
		state.PaymentID,
		document,
		token,
		time.Now().UTC().Add(s.cfg.TokenTTL),
	)

	created, err := s.store.Report().Create(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}

	if err := s.blobs.Put(ctx, created.BlobKey(), pdf, s.cfg.BlobTTL); err != nil {
		return nil, fmt.Errorf("storing report blob: %w", err)
	}

	return created, nil
}

func (s *JobService) recordStageFailure(ctx context.Context, state *cache.JobState, stageErr error, tracer *log.Tracer) {
	state.Error = stageErr.Error()

	if state.Attempts < state.MaxAttempts {
		state.Status = model.JobStatusPending
		metrics.IncreaseJobsProcessedMetric(OutcomeRetried)
		tracer.Error(stageErr).
			WithString("outcome", OutcomeRetried).
			WithInt("attempts", state.Attempts).
			WithInt("max_attempts", state.MaxAttempts).
			Log()
	} else {
		state.Status = model.JobStatusFailed
		metrics.IncreaseJobsProcessedMetric(OutcomeFailed)
		tracer.Error(stageErr).
			WithString("outcome", OutcomeFailed).
			WithInt("attempts", state.Attempts).
			Log()
	}

	if err := s.checkpoint(ctx, state); err != nil {
		tracer.Error(err).WithString("step", "record_failure").Log()
	}
}

// loadState reads the live job record, falling back to the ledger when the
// cache entry is gone. A ledger-reconstructed record has an empty progress
// cursor, so stages restart from artifact generation.
func (s *JobService) loadState(ctx context.Context, id uuid.UUID) (*cache.JobState, error) {
	state, err := s.cache.GetJob(ctx, id)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("reading job state: %w", err)
	}

	row, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, fmt.Errorf("querying job ledger: %w", err)
	}

	state = s.stateFromRow(row)
	if err := s.cache.SetJob(ctx, state, s.cfg.CacheTTL); err != nil {
		return nil, fmt.Errorf("restoring job state: %w", err)
	}
	return state, nil
}

func (s *JobService) stateFromRow(row *model.ReportJob) *cache.JobState {
	state := &cache.JobState{
		ID:           row.ID,
		AssessmentID: row.AssessmentID,
		PaymentID:    row.PaymentID,
		Email:        row.Email,
		Status:       row.Status,
		Attempts:     row.Attempts,
		MaxAttempts:  row.MaxAttempts,
		Progress:     cache.Progress{TotalStages: totalStages},
		CreatedAt:    row.CreatedAt,
	}
	if row.Error != nil {
		state.Error = *row.Error
	}
	return state
}

// checkpoint writes the stage cursor to the cache and mirrors status,
// attempts and error to the ledger.
func (s *JobService) checkpoint(ctx context.Context, state *cache.JobState) error {
	if err := s.checkpointCache(ctx, state); err != nil {
		return err
	}
	errMessage := state.Error
	if _, err := s.store.Job().Update(ctx, state.ID, &state.Status, &state.Attempts, &errMessage); err != nil {
		return fmt.Errorf("updating job ledger row: %w", err)
	}
	return nil
}

func (s *JobService) checkpointCache(ctx context.Context, state *cache.JobState) error {
	if err := s.cache.SetJob(ctx, state, s.cfg.CacheTTL); err != nil {
		return fmt.Errorf("writing job state: %w", err)
	}
	return nil
}

func generateDownloadToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
