package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/Gthorpe2274/mocha-emig/internal/service"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
)

type CreateJobRequest struct {
	AssessmentID string  `json:"assessmentId" validate:"required,uuid4"`
	PaymentID    string  `json:"paymentId" validate:"required,uuid4"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
}

type CreateJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// (POST /api/v1/jobs)
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").
		WithContext(ctx).
		Operation("create_job").
		Build()

	var req CreateJobRequest
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

	assessmentID := uuid.MustParse(req.AssessmentID)
	paymentID := uuid.MustParse(req.PaymentID)

	logger.Step("enqueue").
		WithUUID("assessment_id", assessmentID).
		WithUUID("payment_id", paymentID).
		Log()

	jobID, err := h.jobs.Enqueue(ctx, assessmentID, paymentID, req.Email)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			logger.Error(err).WithString("step", "lookup").Log()
			respondError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrPaymentMismatch:
			logger.Error(err).WithString("step", "payment_check").Log()
			respondError(w, r, http.StatusConflict, err.Error())
		default:
			logger.Error(err).Log()
			respondError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Success().WithUUID("job_id", jobID).Log()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreateJobResponse{ID: jobID.String(), Status: "pending"})
}

type ProcessJobResponse struct {
	ID        string `json:"id"`
	Processed bool   `json:"processed"`
}

// (POST /api/v1/jobs/{id}/process)
func (h *Handler) ProcessJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").
		WithContext(ctx).
		Operation("process_job").
		Build()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error(err).WithString("step", "parse_id").Log()
		respondError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	processed := h.jobs.Process(ctx, id)

	logger.Success().WithUUID("job_id", id).WithBool("processed", processed).Log()
	render.JSON(w, r, ProcessJobResponse{ID: id.String(), Processed: processed})
}

type ProcessPendingRequest struct {
	Limit int `json:"limit" validate:"omitempty,gte=0,lte=100"`
}

// (POST /api/v1/jobs/process)
func (h *Handler) ProcessPendingJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").
		WithContext(ctx).
		Operation("process_pending_jobs").
		Build()

	req := ProcessPendingRequest{}
	if r.ContentLength > 0 {
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
	}

	result, err := h.jobs.ProcessPending(ctx, req.Limit)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Success().
		WithInt("swept", result.Swept).
		WithInt("completed", result.Completed).
		Log()
	render.JSON(w, r, result)
}

// (POST /api/v1/jobs/recover)
func (h *Handler) RecoverJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").
		WithContext(ctx).
		Operation("recover_jobs").
		Build()

	result, err := h.recovery.RestoreMissingJobs(ctx, 0)
	if err != nil {
		logger.Error(err).Log()
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Success().
		WithInt("scanned", result.Scanned).
		WithInt("restored", result.Restored).
		Log()
	render.JSON(w, r, result)
}

// (GET /api/v1/jobs/{id}/progress)
func (h *Handler) GetJobProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.NewDebugLogger("job_handler").
		WithContext(ctx).
		Operation("get_job_progress").
		Build()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		logger.Error(err).WithString("step", "parse_id").Log()
		respondError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	progress, err := h.jobs.Progress(ctx, id)
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
		WithUUID("job_id", id).
		WithString("status", progress.Status).
		WithInt("percentage", progress.Percentage).
		Log()
	render.JSON(w, r, progress)
}
