package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"vidframe/logger"
	"vidframe/models"
)

// Pending tracks jobs that were submitted but have not reached a terminal
// status yet, so a restarted process can resume polling them.
type Pending struct {
	db *DB
}

// OpenPending opens the pending queue at dataFile. Only one handle may hold
// a queue at a time.
func OpenPending(dataFile string) (*Pending, error) {
	db, err := Open(dataFile)
	if err != nil {
		return nil, err
	}
	return &Pending{db: db}, nil
}

// Add stores rec keyed by its job ID, replacing any earlier entry.
func (p *Pending) Add(rec models.JobRecord) error {
	if rec.JobID == "" {
		return fmt.Errorf("pending record has no job ID")
	}
	rec.UpdatedAt = time.Now()
	return p.db.Put(rec.JobID, rec)
}

// Get returns the pending record for id, or nil when there is none.
func (p *Pending) Get(id string) (*models.JobRecord, error) {
	var rec models.JobRecord
	ok, err := p.db.Get(id, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// Delete drops id from the queue.
func (p *Pending) Delete(id string) error {
	return p.db.Delete(id)
}

// List returns every pending record, skipping entries that do not decode.
func (p *Pending) List() ([]models.JobRecord, error) {
	var records []models.JobRecord
	err := p.db.Each(func(key string, value []byte) error {
		var rec models.JobRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			logger.Warnf("Skipping unreadable pending record %s: %v", key, err)
			return nil
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// Ping verifies the queue answers reads.
func (p *Pending) Ping() error {
	return p.db.Ping()
}

// Close closes the queue.
func (p *Pending) Close() error {
	return p.db.Close()
}
