package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/service"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
)

// (POST /api/v1/retention/sweep)
func (h *Handler) SweepRetention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("retention_handler").
		WithContext(ctx).
		Operation("sweep_retention").
		Build()

	stats, err := h.retention.Sweep(ctx, time.Now().UTC(), 0)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Success().
		WithInt("assessments_deleted", stats.AssessmentsDeleted).
		WithInt("errors", stats.Errors).
		Log()
	render.JSON(w, r, stats)
}

// (GET /api/v1/retention/stats)
func (h *Handler) GetRetentionStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("retention_handler").
		WithContext(ctx).
		Operation("get_retention_stats").
		Build()

	stats, err := h.retention.Stats(ctx, time.Now().UTC())
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Success().Log()
	render.JSON(w, r, stats)
}

type ExtendRetentionRequest struct {
	Months int `json:"months" validate:"required,gte=1,lte=120"`
}

type ExtendRetentionResponse struct {
	AssessmentID       string    `json:"assessmentId"`
	RetentionExpiresAt time.Time `json:"retentionExpiresAt"`
}

// (POST /api/v1/assessments/{id}/retention/extend)
func (h *Handler) ExtendRetention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("retention_handler").
		WithContext(ctx).
		Operation("extend_retention").
		Build()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error(err).WithString("step", "parse_id").Log()
		respondError(w, r, http.StatusBadRequest, "invalid assessment id")
		return
	}

	var req ExtendRetentionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		logger.Error(err).WithString("step", "decode").Log()
		respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		logger.Error(err).WithString("step", "validation").Log()
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := h.retention.ExtendRetention(ctx, id, req.Months)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			logger.Error(err).WithString("step", "lookup").Log()
			respondError(w, r, http.StatusNotFound, err.Error())
		default:
			logger.Error(err).Log()
			respondError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Success().
		WithUUID("assessment_id", id).
		WithInt("months", req.Months).
		Log()
	render.JSON(w, r, ExtendRetentionResponse{
		AssessmentID:       assessment.ID.String(),
		RetentionExpiresAt: assessment.RetentionExpiresAt,
	})
}
