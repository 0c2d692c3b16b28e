package job

import (
	"context"
	"fmt"
	"time"

	"vidframe/logger"
)

// Status is a MediaConvert job status.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusProgressing Status = "PROGRESSING"
	StatusComplete    Status = "COMPLETE"
	StatusCanceled    Status = "CANCELED"
	StatusError       Status = "ERROR"
)

// DefaultPollInterval is the fixed sleep between status checks.
const DefaultPollInterval = 30 * time.Second

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCanceled, StatusError:
		return true
	}
	return false
}

// StatusGetter is anything that can report a job's status with one call.
type StatusGetter interface {
	Status(ctx context.Context, id string) (Status, error)
}

var _ StatusGetter = (*Client)(nil)

// Wait polls id every interval until a terminal status is observed and
// returns it. onStatus, if set, sees every observed status. There is no
// backoff and no timeout; only ctx ends the loop early.
func Wait(ctx context.Context, g StatusGetter, id string, interval time.Duration, onStatus func(Status)) (Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		status, err := g.Status(ctx, id)
		if err != nil {
			return "", err
		}
		logger.Infof("Job Status: %s", status)
		if onStatus != nil {
			onStatus(status)
		}
		if status.Terminal() {
			return status, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, fmt.Errorf("stopped waiting for job %s: %w", id, ctx.Err())
		case <-timer.C:
		}
	}
}
