package model

import "time"

// RetentionStats is the read-only operational view over the assessments
// table's retention horizon.
type RetentionStats struct {
	TotalAssessments   int64      `json:"totalAssessments"`
	ExpiredAssessments int64      `json:"expiredAssessments"`
	OldestExpiredAt    *time.Time `json:"oldestExpiredAt,omitempty"`
	NextExpiryAt       *time.Time `json:"nextExpiryAt,omitempty"`
}
