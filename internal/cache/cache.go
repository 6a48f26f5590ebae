package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/generator"
)

// ErrMiss is returned when no live entry exists for a key. A miss is an
// expected condition: the cache tier is evictable and time-limited, and the
// recovery reconciler rebuilds lost entries from the ledger.
var ErrMiss = errors.New("cache miss")

// Progress is the stage cursor checkpointed after every stage. The stage
// flags are what make reprocessing idempotent: a flag persisted before the
// next stage starts means a crashed or duplicated invocation skips the work
// already done.
type Progress struct {
	CurrentStage      int                 `json:"currentStage"`
	TotalStages       int                 `json:"totalStages"`
	CompletedStages   []string            `json:"completedStages,omitempty"`
	ArtifactGenerated bool                `json:"artifactGenerated"`
	PDFGenerated      bool                `json:"pdfGenerated"`
	Document          *generator.Document `json:"document,omitempty"`
}

// JobState is the live in-progress job record. Not authoritative: the ledger
// row owns existence and terminal status, this record owns the stage cursor.
type JobState struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessmentId"`
	PaymentID    uuid.UUID `json:"paymentId"`
	Email        *string   `json:"email,omitempty"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"maxAttempts"`
	Error        string    `json:"error,omitempty"`
	Progress     Progress  `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Cache is the volatile TTL-bearing store for live job state.
type Cache interface {
	GetJob(ctx context.Context, id uuid.UUID) (*JobState, error)
	SetJob(ctx context.Context, state *JobState, ttl time.Duration) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

func jobKey(id uuid.UUID) string {
	return "job:" + id.String()
}
