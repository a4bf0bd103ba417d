// Package httpapi exposes the job submission, status, and artifact-download
// HTTP surface over the subtitle pipeline.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/MrWong99/subtitled/internal/storage"
	"github.com/MrWong99/subtitled/internal/store"
	"github.com/MrWong99/subtitled/internal/worker"
)

// maxUploadBytes bounds the multipart source file accepted by POST /jobs.
const maxUploadBytes = 2 << 30 // 2 GiB

// JobStore is the subset of [store.Store] the HTTP surface depends on.
type JobStore interface {
	CreateJob(ctx context.Context, id, sourcePath string) (*store.Job, error)
	GetJob(ctx context.Context, id string) (*store.Job, error)
}

// Handler serves the job submission, status, and download endpoints.
//
// All exported methods are safe for concurrent use; state lives entirely in
// Store, Layout, and Queue.
type Handler struct {
	Store  JobStore
	Layout *storage.Layout
	Queue  worker.Enqueuer
}

// New creates a Handler.
func New(st JobStore, layout *storage.Layout, queue worker.Enqueuer) *Handler {
	return &Handler{Store: st, Layout: layout, Queue: queue}
}

// Register adds the job routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /jobs", h.CreateJob)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /jobs/{id}/download/{kind}", h.Download)
}

// jobResponse is the JSON shape returned by CreateJob and GetJob.
type jobResponse struct {
	JobID           string   `json:"job_id"`
	Status          string   `json:"status"`
	RiskLevel       string   `json:"risk_level,omitempty"`
	DifficultyScore int      `json:"difficulty_score,omitempty"`
	StrategistConf  int      `json:"strategist_conf,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Tone            string   `json:"tone,omitempty"`
	DomainTags      []string `json:"domain_tags,omitempty"`
	ErrorMessage    string   `json:"error_message,omitempty"`
}

func jobToResponse(j *store.Job) jobResponse {
	return jobResponse{
		JobID:           j.ID,
		Status:          string(j.Status),
		RiskLevel:       j.RiskLevel,
		DifficultyScore: j.DifficultyScore,
		StrategistConf:  j.StrategistConfidence,
		Genre:           j.Genre,
		Tone:            j.Tone,
		DomainTags:      j.DomainTags,
		ErrorMessage:    j.ErrorMessage,
	}
}

// CreateJob handles POST /jobs: accepts a multipart upload under the "file"
// field, persists it under the configured data root, records a new Job in
// status UPLOADED, and enqueues it for background processing.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" field: "+err.Error())
		return
	}
	defer file.Close()

	jobID := uuid.NewString()
	sourcePath := h.Layout.UploadPath(jobID, header.Filename)

	dst, err := os.Create(sourcePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}
	if err := dst.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}

	job, err := h.Store.CreateJob(r.Context(), jobID, sourcePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record job: "+err.Error())
		return
	}

	if err := h.Queue.Enqueue(r.Context(), worker.Job{ID: jobID, SourcePath: sourcePath}); err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue job: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

// GetJob handles GET /jobs/{id}: returns the job's current stage-machine
// status and strategist metadata once available.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := h.Store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load job: "+err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// Download handles GET /jobs/{id}/download/{kind}, serving one of
// en_srt, fa_srt, qa_report, librarian. Returns 400 for an unknown kind and
// 404 until the corresponding artifact has been written.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kind, err := storage.ParseDownloadKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path := h.Layout.Path(id, kind)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "artifact not ready")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to open artifact: "+err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", h.Layout.ContentType(kind))
	if _, err := io.Copy(w, f); err != nil {
		// Response headers are already sent; nothing more to do but let the
		// client observe a truncated body.
		return
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"internal encoding failure"}`, http.StatusInternalServerError)
	}
}
