package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/Gthorpe2274/mocha-emig/internal/service"
	"github.com/Gthorpe2274/mocha-emig/pkg/requestid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler exposes the pipeline's trigger surface. Every route delegates to a
// service; no business rules live here.
type Handler struct {
	jobs      *service.JobService
	recovery  *service.RecoveryService
	retention *service.RetentionService
	downloads *service.DownloadService
}

func NewHandler(
	jobs *service.JobService,
	recovery *service.RecoveryService,
	retention *service.RetentionService,
	downloads *service.DownloadService,
) *Handler {
	return &Handler{
		jobs:      jobs,
		recovery:  recovery,
		retention: retention,
		downloads: downloads,
	}
}

func (h *Handler) Routes(router chi.Router) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", h.CreateJob)
		r.Post("/jobs/process", h.ProcessPendingJobs)
		r.Post("/jobs/recover", h.RecoverJobs)
		r.Post("/jobs/{id}/process", h.ProcessJob)
		r.Get("/jobs/{id}/progress", h.GetJobProgress)
		r.Post("/retention/sweep", h.SweepRetention)
		r.Get("/retention/stats", h.GetRetentionStats)
		r.Post("/assessments/{id}/retention/extend", h.ExtendRetention)
		r.Get("/reports/{token}", h.DownloadReport)
	})
}

// ErrorResponse is the uniform error body for the v1 surface.
type ErrorResponse struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Message:   message,
		RequestId: requestid.FromContextPtr(r.Context()),
	})
}
