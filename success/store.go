// Package success keeps the records of jobs that finished with COMPLETE.
package success

import (
	"encoding/json"
	"fmt"
	"time"

	"vidframe/models"
	"vidframe/queue"
)

var db *queue.DB

// Init initializes the success store
func Init(dbPath string) error {
	store, err := queue.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open success store: %w", err)
	}
	db = store
	return nil
}

// Close closes the success store
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// StoreSuccess stores a completed job
func StoreSuccess(rec models.JobRecord) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return db.Put(rec.JobID, rec)
}

// GetSuccess retrieves a success record by job ID. Not found is not an error.
func GetSuccess(id string) (*models.JobRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}
	var rec models.JobRecord
	ok, err := db.Get(id, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// DeleteSuccess removes a success record
func DeleteSuccess(id string) error {
	if db == nil {
		return fmt.Errorf("success store not initialized")
	}
	return db.Delete(id)
}

// ListSuccessRecords returns all success records
func ListSuccessRecords() ([]models.JobRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	var records []models.JobRecord
	err := db.Each(func(_ string, value []byte) error {
		var rec models.JobRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // Skip invalid records
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// CleanupOldRecords removes success records last updated before maxAge ago
// and returns how many were removed.
func CleanupOldRecords(maxAge time.Duration) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("success store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	var stale []string
	err := db.Each(func(key string, value []byte) error {
		var rec models.JobRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		if rec.UpdatedAt.Before(cutoff) {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		if err := db.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to delete old success record: %w", err)
		}
	}
	return len(stale), nil
}

// CheckHealth performs a basic health check on the success database
func CheckHealth() error {
	if db == nil {
		return fmt.Errorf("success database not initialized")
	}
	return db.Ping()
}
