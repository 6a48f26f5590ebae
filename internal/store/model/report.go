package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	ID             uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt      time.Time `gorm:"not null"`
	AssessmentID   uuid.UUID `gorm:"not null;type:VARCHAR(255);index:reports_assessment_idx"`
	PaymentID      uuid.UUID `gorm:"not null;type:VARCHAR(255)"`
	Document       []byte    `gorm:"type:jsonb;not null"`
	DownloadToken  string    `gorm:"not null;uniqueIndex:reports_token_idx"`
	TokenExpiresAt time.Time `gorm:"not null"`
}

type ReportList []Report

func (r Report) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}

// BlobKey derives the blob-store key for the rendered PDF from the report's
// own identifier, never from the download token. Tokens can be reissued or
// rows deleted without orphaning the key scheme.
func (r Report) BlobKey() string {
	return "reports/" + r.ID.String() + ".pdf"
}

func NewReport(id, assessmentID, paymentID uuid.UUID, document []byte, token string, tokenExpiresAt time.Time) Report {
	return Report{
		ID:             id,
		AssessmentID:   assessmentID,
		PaymentID:      paymentID,
		Document:       document,
		DownloadToken:  token,
		TokenExpiresAt: tokenExpiresAt,
	}
}
