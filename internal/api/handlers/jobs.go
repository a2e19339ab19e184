package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/go-chi/chi/v5"
)

// JobsHandler enqueues maintenance jobs and reports their status.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.Store
	tasks     jobs.Tasks
}

// NewJobsHandler creates a new jobs handler. Only job types present in
// tasks can be enqueued.
func NewJobsHandler(publisher jobs.Publisher, store jobs.Store, tasks jobs.Tasks) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store, tasks: tasks}
}

// List handles GET /api/jobs
// Query parameters: type, status, limit, offset
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.Filter{
		Type:   jobs.JobType(q.Get("type")),
		Status: jobs.JobStatus(q.Get("status")),
		Limit:  50,
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if s := q.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
				return
			}
			*dst = n
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeVaultError(w, r, err, "list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		notFound(w, "Job")
		return
	}
	if err != nil {
		writeVaultError(w, r, err, "get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// Create handles POST /api/jobs with body {"type": "..."}
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	typ, err := jobs.ParseJobType(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.tasks[typ]; !ok {
		middleware.WriteError(w, http.StatusBadRequest, string(typ)+" is not configured")
		return
	}

	job := &jobs.Job{Type: typ}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeVaultError(w, r, err, "enqueue job")
		return
	}

	// The queue owns job now; answer from the store's copy.
	saved, err := h.store.GetJob(r.Context(), job.ID)
	if err != nil {
		writeVaultError(w, r, err, "get job")
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, saved)
}
