package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/cache"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

// JobProgress is the polling view of a job. Percentage is derived from the
// stage cursor, never stored.
type JobProgress struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	Percentage  int       `json:"percentage"`
	Phase       string    `json:"phase"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Progress reports the current state of a job. The cache entry gives
// stage-level granularity; when it has expired the answer degrades to the
// coarser ledger view instead of failing.
func (s *JobService) Progress(ctx context.Context, id uuid.UUID) (*JobProgress, error) {
	state, err := s.cache.GetJob(ctx, id)
	if err == nil {
		return progressFromState(state), nil
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

	progress := &JobProgress{
		ID:          row.ID,
		Status:      row.Status,
		Percentage:  percentage(row.Status, 0),
		Phase:       phase(row.Status, cache.Progress{}),
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
	}
	if row.Error != nil {
		progress.Error = *row.Error
	}
	if row.UpdatedAt != nil {
		progress.UpdatedAt = *row.UpdatedAt
	}
	return progress, nil
}

func progressFromState(state *cache.JobState) *JobProgress {
	return &JobProgress{
		ID:          state.ID,
		Status:      state.Status,
		Percentage:  percentage(state.Status, len(state.Progress.CompletedStages)),
		Phase:       phase(state.Status, state.Progress),
		Attempts:    state.Attempts,
		MaxAttempts: state.MaxAttempts,
		Error:       state.Error,
		UpdatedAt:   state.UpdatedAt,
	}
}

func percentage(status string, completedStages int) int {
	switch status {
	case model.JobStatusCompleted:
		return 100
	case model.JobStatusProcessing:
		return 10 + 45*completedStages
	default:
		return 0
	}
}

func phase(status string, progress cache.Progress) string {
	switch status {
	case model.JobStatusCompleted:
		return "report ready"
	case model.JobStatusFailed:
		return "failed"
	case model.JobStatusProcessing:
		if progress.ArtifactGenerated {
			return "rendering report"
		}
		return "generating content"
	default:
		return "waiting to start"
	}
}
