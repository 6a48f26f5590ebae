package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gthorpe2274/mocha-emig/internal/blob"
	"github.com/Gthorpe2274/mocha-emig/internal/generator"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
	"github.com/Gthorpe2274/mocha-emig/pkg/metrics"
)

// DownloadService resolves download tokens to report PDFs. The token is the
// only credential: possession grants access until the token expires or the
// retention sweeper removes the report.
type DownloadService struct {
	store  store.Store
	blobs  blob.Store
	logger *log.StructuredLogger
}

func NewDownloadService(store store.Store, blobs blob.Store) *DownloadService {
	return &DownloadService{
		store:  store,
		blobs:  blobs,
		logger: log.NewDebugLogger("download_service"),
	}
}

// Download is a resolved report ready to serve.
type Download struct {
	Filename string
	Data     []byte
}

// GetByToken resolves a download token to the rendered PDF. Unknown and
// expired tokens are distinguished for the caller, but both are terminal:
// tokens are never refreshed.
func (s *DownloadService) GetByToken(ctx context.Context, token string) (*Download, error) {
	logger := s.logger.WithContext(ctx)
	tracer := logger.Operation("download_report").
		WithString("token_prefix", truncateToken(token)).
		Build()

	report, err := s.store.Report().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			metrics.IncreaseReportDownloadsMetric("not_found")
			tracer.Error(err).Log()
			return nil, NewErrReportNotFound()
		}
		metrics.IncreaseReportDownloadsMetric("error")
		tracer.Error(err).Log()
		return nil, fmt.Errorf("resolving download token: %w", err)
	}

	if time.Now().After(report.TokenExpiresAt) {
		metrics.IncreaseReportDownloadsMetric("expired")
		tracer.Error(errors.New("token expired")).
			WithString("expired_at", report.TokenExpiresAt.Format(time.RFC3339)).
			Log()
		return nil, NewErrTokenExpired(token)
	}

	data, err := s.blobs.Get(ctx, report.BlobKey())
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// The row outlived its blob, most likely a TTL mismatch between
			// the tiers. Treat as gone rather than expose a broken download.
			metrics.IncreaseReportDownloadsMetric("not_found")
			tracer.Error(err).WithString("blob_key", report.BlobKey()).Log()
			return nil, NewErrReportNotFound()
		}
		metrics.IncreaseReportDownloadsMetric("error")
		tracer.Error(err).Log()
		return nil, fmt.Errorf("reading report blob: %w", err)
	}

	metrics.IncreaseReportDownloadsMetric("served")
	tracer.Success().WithUUID("report_id", report.ID).Log()
	return &Download{
		Filename: downloadFilename(report.Document),
		Data:     data,
	}, nil
}

func downloadFilename(document []byte) string {
	var doc generator.Document
	if err := json.Unmarshal(document, &doc); err == nil && doc.Country != "" {
		name := strings.ToLower(strings.ReplaceAll(doc.Country, " ", "-"))
		return "relocation-report-" + name + ".pdf"
	}
	return "relocation-report.pdf"
}
