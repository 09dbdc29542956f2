package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/source"
	"github.com/rate-estimator/internal/training"
)

// Jobs is the training queue the handlers submit to.
type Jobs interface {
	Submit(ctx context.Context, job training.Job) (string, <-chan training.Completion, error)
	Status(id string) (training.Status, error)
	Cancel(id string) error
}

// TrainingHandler serves the asynchronous training endpoints.
type TrainingHandler struct {
	Jobs Jobs
	Log  *zap.Logger
}

// TrainRequest is the body of POST /api/train: a rate sheet given as a
// header row and data rows.
type TrainRequest struct {
	Kind    string     `json:"kind"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// Submit queues a training job and answers 202 with its id. Sheets missing
// required columns are rejected before queueing.
func (h *TrainingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	kind, err := artifacts.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := training.Job{Kind: kind, Table: source.Table{Headers: req.Headers, Rows: req.Rows}}
	id, _, err := h.Jobs.Submit(r.Context(), job)
	switch {
	case errors.Is(err, training.ErrQueueFull), errors.Is(err, training.ErrShutdown):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.Log.Info("training job accepted", zap.String("job", id), zap.String("kind", string(kind)), zap.Int("rows", len(req.Rows)))
	w.Header().Set("Location", "/api/train/"+id)
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: id})
}

// Status reports a job's state and, once finished, its completion.
func (h *TrainingHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Jobs.Status(mux.Vars(r)["id"])
	if errors.Is(err, training.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Cancel stops a queued or running job.
func (h *TrainingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.Jobs.Cancel(mux.Vars(r)["id"])
	if errors.Is(err, training.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
