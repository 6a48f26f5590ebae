package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gthorpe2274/mocha-emig/internal/service"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
)

// (GET /api/v1/reports/{token})
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("report_handler").
		WithContext(ctx).
		Operation("download_report").
		Build()

	token := chi.URLParam(r, "token")
	if len(token) != 64 {
		logger.Error(fmt.Errorf("malformed token")).WithString("step", "parse_token").Log()
		respondError(w, r, http.StatusNotFound, "report not found")
		return
	}

	download, err := h.downloads.GetByToken(ctx, token)
	if err != nil {
		switch err.(type) {
		case *service.ErrReportNotFound:
			logger.Error(err).WithString("step", "lookup").Log()
			respondError(w, r, http.StatusNotFound, "report not found")
		case *service.ErrTokenExpired:
			logger.Error(err).WithString("step", "expiry_check").Log()
			respondError(w, r, http.StatusGone, "download link has expired")
		default:
			logger.Error(err).Log()
			respondError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Success().WithString("filename", download.Filename).Log()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(download.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Data)
}
