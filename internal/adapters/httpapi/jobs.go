package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

type JobsHandler struct {
	jobs *app.JobService
}

func NewJobsHandler(jobs *app.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

func (h *JobsHandler) Routes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)
	})
	// Raccourci: précharger une sourate sans construire le corps du job.
	r.Post("/prefetch/{chapter}", h.prefetch)
}

func (h *JobsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateJobRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
		return
	}
	if req.Type == "" {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "missing type")
		return
	}
	h.submit(w, r, req)
}

func (h *JobsHandler) prefetch(w http.ResponseWriter, r *http.Request) {
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "chapter must be an integer")
		return
	}
	params, _ := json.Marshal(app.PrefetchParams{Chapter: chapter, Reciter: r.URL.Query().Get("reciter")})
	h.submit(w, r, app.CreateJobRequest{Type: domain.JobTypePrefetch, Params: params})
}

func (h *JobsHandler) submit(w http.ResponseWriter, r *http.Request, req app.CreateJobRequest) {
	job, err := h.jobs.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	httpjson.Write(w, http.StatusCreated, job)
}

func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jobs, err := h.jobs.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, jobs)
}

func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, job)
}

func (h *JobsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, job)
}
