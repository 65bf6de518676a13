package status

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP surface for the status service.
func NewRouter(svc *Service) *mux.Router {
	h := &handler{svc: svc}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", h.health).Methods("GET")
	router.HandleFunc("/api/jobs", h.listJobs).Methods("GET")
	router.HandleFunc("/api/jobs/{name}", h.getJob).Methods("GET")
	router.HandleFunc("/api/jobs/{name}/log", h.getJobLog).Methods("GET")
	return router
}

type handler struct {
	svc *Service
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.svc.Ping(r.Context()); err != nil {
		status = "unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	states, err := h.svc.AllJobStates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	state, err := h.svc.JobState(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if state == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job has never run"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handler) getJobLog(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.svc.JobLog(r.Context(), name, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	// Flatten the nullable columns for JSON consumers.
	type entryJSON struct {
		LogID        int64      `json:"log_id"`
		JobName      string     `json:"job_name"`
		StartTime    time.Time  `json:"start_time"`
		EndTime      *time.Time `json:"end_time,omitempty"`
		Status       string     `json:"status"`
		Message      string     `json:"message"`
		RowsAffected int64      `json:"rows_affected"`
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			LogID:        e.LogID,
			JobName:      e.JobName,
			StartTime:    e.StartTime,
			EndTime:      e.EndTime,
			Status:       string(e.Status),
			Message:      e.Message.String,
			RowsAffected: e.RowsAffected.Int64,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Printf("Status API error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
