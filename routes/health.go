package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"vidframe/failures"
	"vidframe/logger"
	"vidframe/success"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Stores    map[string]string `json:"stores"`
}

var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports process uptime and whether the record stores and
// the pending queue answer. Any unhealthy store turns the response into a 503.
func HealthHandler(pending PendingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logger.Warnf("Invalid method for health endpoint: %s", r.Method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   version,
			GoVersion: runtime.Version(),
			Uptime:    formatUptime(time.Since(startTime)),
			Stores:    map[string]string{},
		}

		checks := map[string]func() error{
			"success":  success.CheckHealth,
			"failures": failures.CheckHealth,
			"pending":  pendingCheck(pending),
		}

		code := http.StatusOK
		for name, check := range checks {
			if err := check(); err != nil {
				logger.Warnf("Store %s unhealthy: %v", name, err)
				response.Stores[name] = err.Error()
				response.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			response.Stores[name] = "ok"
		}

		writeJSON(w, code, response)
	}
}

func pendingCheck(pending PendingStore) func() error {
	return func() error {
		if pending == nil {
			return fmt.Errorf("pending queue not open")
		}
		return pending.Ping()
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
