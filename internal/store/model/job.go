package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ReportJob is the authoritative ledger row for one report-generation job.
// The stage-progress cursor is deliberately not stored here: it lives in the
// volatile cache, so a job rebuilt from this row restarts from the first
// stage.
type ReportJob struct {
	ID           uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt    time.Time `gorm:"not null;index:jobs_created_idx"`
	UpdatedAt    *time.Time
	AssessmentID uuid.UUID `gorm:"not null;type:VARCHAR(255);index:jobs_assessment_idx"`
	PaymentID    uuid.UUID `gorm:"not null;type:VARCHAR(255)"`
	Email        *string   `gorm:"type:VARCHAR(255)"`
	Status       string    `gorm:"not null;type:VARCHAR(50);index:jobs_status_idx"`
	Attempts     int       `gorm:"not null;default:0"`
	MaxAttempts  int       `gorm:"not null"`
	Error        *string   `gorm:"type:TEXT"`
}

type ReportJobList []ReportJob

func (j ReportJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

func NewReportJob(id, assessmentID, paymentID uuid.UUID, email *string, maxAttempts int) ReportJob {
	return ReportJob{
		ID:           id,
		AssessmentID: assessmentID,
		PaymentID:    paymentID,
		Email:        email,
		Status:       JobStatusPending,
		MaxAttempts:  maxAttempts,
	}
}
