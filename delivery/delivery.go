// Package delivery mirrors a finished job's frames from the output bucket
// to a local directory, a GCS bucket or an SFTP server.
package delivery

import (
	"context"
	"fmt"
	"io"

	"vidframe/config"
)

// Target receives mirrored objects. name is the object key relative to the
// mirrored prefix and always uses forward slashes.
type Target interface {
	Write(ctx context.Context, name string, r io.Reader) error
	Close() error
}

// NewTarget builds the target selected by cfg.Type. It returns a nil Target
// when delivery is disabled.
func NewTarget(ctx context.Context, cfg config.DeliveryConfig) (Target, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		t, err := newLocalTarget(cfg.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to set up local delivery: %w", err)
		}
		return t, nil
	case "gcs":
		t, err := newGCSTarget(ctx, cfg.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to set up GCS delivery: %w", err)
		}
		return t, nil
	case "sftp":
		t, err := newSFTPTarget(ctx, cfg.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to set up SFTP delivery: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown delivery type: %s", cfg.Type)
	}
}
