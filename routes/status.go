package routes

import (
	"net/http"

	"vidframe/failures"
	"vidframe/logger"
	"vidframe/models"
	"vidframe/success"
)

// PendingStore is the queue of jobs that are still being polled.
type PendingStore interface {
	Get(id string) (*models.JobRecord, error)
	Ping() error
}

// JobStatusResponse represents the job status response
type JobStatusResponse struct {
	JobID  string            `json:"job_id"`
	State  string            `json:"state"`
	Record *models.JobRecord `json:"record"`
}

// JobStatusHandler looks a job up in the pending queue, then the success
// store, then the failure store, and reports the first match.
func JobStatusHandler(pending PendingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logger.Warnf("Invalid method for status endpoint: %s", r.Method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id parameter required", http.StatusBadRequest)
			return
		}

		lookups := []struct {
			state string
			get   func(string) (*models.JobRecord, error)
		}{
			{"pending", pending.Get},
			{"complete", success.GetSuccess},
			{"failed", failures.GetFailure},
		}
		for _, l := range lookups {
			rec, err := l.get(id)
			if err != nil {
				logger.Errorf("Failed to look up job %s in %s records: %v", id, l.state, err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if rec != nil {
				writeJSON(w, http.StatusOK, JobStatusResponse{JobID: id, State: l.state, Record: rec})
				return
			}
		}

		logger.Debugf("Job not found: %s", id)
		http.Error(w, "Job "+id+" not found", http.StatusNotFound)
	}
}
