package httpapi

import (
	"log/slog"
	"net/http"

	"jobagent/internal/bus"
	"jobagent/internal/store"
)

type JobsHandler struct {
	Store store.Store
	Bus   Commander
	Log   *slog.Logger
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Store.ListJobs(r.Context())
	if err != nil {
		failWith(w, r, h.Log, http.StatusInternalServerError, codeDBError, "could not list jobs", err)
		return
	}
	writeJSON(w, jobs)
}

// Action serves POST /jobs/{id}/generate.
func (h JobsHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, action, ok := jobAction(r.URL.Path)
	if !ok || action != "generate" {
		WriteError(w, r, http.StatusNotFound, codeNotFound, "no such route")
		return
	}
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	reqID := RequestIDFrom(r.Context())
	if err := h.Bus.Generate(r.Context(), bus.Generate{JobID: id, RequestID: reqID}); err != nil {
		failWith(w, r, h.Log, http.StatusBadGateway, codeQueueUnavailable, "could not queue generation", err, "job_id", id)
		return
	}
	h.Log.Info("generation queued", "request_id", reqID, "job_id", id)
	writeJSON(w, map[string]string{"status": "started"})
}

// Reset deletes every stored job.
func (h JobsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Reset(r.Context())
	if err != nil {
		failWith(w, r, h.Log, http.StatusInternalServerError, codeDBError, "reset failed", err)
		return
	}
	h.Log.Info("jobs cleared", "request_id", RequestIDFrom(r.Context()), "deleted", n)
	writeJSON(w, map[string]any{"status": "cleared", "deleted": n})
}
