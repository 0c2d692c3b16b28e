package routes

import (
	"net/http"

	"vidframe/logger"
	"vidframe/success"
)

// SuccessQueryHandler returns the success record for ?id=
func SuccessQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id parameter required", http.StatusBadRequest)
		return
	}

	record, err := success.GetSuccess(id)
	if err != nil {
		logger.Errorf("Failed to query success for job %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if record == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":  id,
			"status":  "not_found",
			"message": "No success record found for this job",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":       record.JobID,
		"status":       "success",
		"updated_at":   record.UpdatedAt,
		"input":        record.Input,
		"destinations": record.Destinations,
	})
}

// SuccessListHandler lists all success records
func SuccessListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := success.ListSuccessRecords()
	if err != nil {
		logger.Errorf("Failed to list success records: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success_records": records,
		"count":           len(records),
	})
}
