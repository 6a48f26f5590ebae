package notify

import (
	"context"
	"time"
)

// ReportNotification carries what the email template needs. The download URL
// embeds the token, never the report row id.
type ReportNotification struct {
	AssessmentID string
	Country      string
	DownloadURL  string
	ExpiresAt    time.Time
}

// Notifier delivers the report-ready message to a contact address. Delivery
// failure must never fail the owning job.
type Notifier interface {
	Send(ctx context.Context, address string, notification ReportNotification) error
}
