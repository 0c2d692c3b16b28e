// Package failures keeps jobs that ended in ERROR or CANCELED, and
// submissions that never produced a job.
package failures

import (
	"encoding/json"
	"fmt"
	"time"

	"vidframe/models"
	"vidframe/queue"
)

var db *queue.DB

// Init initializes the failure store
func Init(dbPath string) error {
	store, err := queue.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open failure store: %w", err)
	}
	db = store
	return nil
}

// Close closes the failure store
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// StoreFailure records rec with cause. Records without a job ID (a
// submission that was rejected) are keyed by input and time.
func StoreFailure(rec models.JobRecord, cause error) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	rec.UpdatedAt = time.Now()

	key := rec.JobID
	if key == "" {
		key = fmt.Sprintf("unsubmitted:%s:%d", rec.Input, rec.UpdatedAt.UnixNano())
	}
	return db.Put(key, rec)
}

// GetFailure retrieves a failure record by key
func GetFailure(id string) (*models.JobRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}
	var rec models.JobRecord
	ok, err := db.Get(id, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	if !ok {
		return nil, nil // No failure found
	}
	return &rec, nil
}

// DeleteFailure removes a failure record
func DeleteFailure(id string) error {
	if db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return db.Delete(id)
}

// ListFailures returns all failure records
func ListFailures() ([]models.JobRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	var failures []models.JobRecord
	err := db.Each(func(_ string, value []byte) error {
		var rec models.JobRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // Skip invalid records
		}
		failures = append(failures, rec)
		return nil
	})
	return failures, err
}

// CleanupOldRecords removes failures older than maxAge.
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("failure store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	var stale []string
	err := db.Each(func(key string, value []byte) error {
		var rec models.JobRecord
		if json.Unmarshal(value, &rec) == nil && rec.UpdatedAt.Before(cutoff) {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, key := range stale {
		if err := db.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to delete old failure record: %w", err)
		}
	}
	return len(stale), nil
}

// CheckHealth performs a basic health check on the failure database
func CheckHealth() error {
	if db == nil {
		return fmt.Errorf("failure database not initialized")
	}
	return db.Ping()
}
