package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the service log. Used when no mail
// dispatcher is configured; the real dispatcher lives outside this service.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, address string, notification ReportNotification) error {
	zap.S().Named("notify").Infow("report ready notification",
		"address", address,
		"assessment_id", notification.AssessmentID,
		"country", notification.Country,
		"expires_at", notification.ExpiresAt,
	)
	return nil
}
