package routes

import (
	"net/http"

	"vidframe/failures"
	"vidframe/logger"
)

// FailureQueryHandler returns the failure record for ?id=
func FailureQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id parameter required", http.StatusBadRequest)
		return
	}

	record, err := failures.GetFailure(id)
	if err != nil {
		logger.Errorf("Failed to query failure for job %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if record == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":  id,
			"status":  "not_found",
			"message": "No failure recorded for this job",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":     record.JobID,
		"status":     "failed",
		"job_status": record.Status,
		"updated_at": record.UpdatedAt,
		"error":      record.Error,
		"input":      record.Input,
	})
}

// FailureListHandler lists all failures
func FailureListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	failuresList, err := failures.ListFailures()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failuresList,
		"count":    len(failuresList),
	})
}
