package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vidframe/logger"
)

// localTarget writes objects under a base directory on this machine.
type localTarget struct {
	baseDir string
}

func newLocalTarget(settings map[string]string) (*localTarget, error) {
	baseDir := settings["baseDir"]
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &localTarget{baseDir: baseDir}, nil
}

func (t *localTarget) Write(_ context.Context, name string, r io.Reader) error {
	rel := filepath.Clean(filepath.FromSlash(name))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to write %q outside %s", name, t.baseDir)
	}
	fullPath := filepath.Join(t.baseDir, rel)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Debugf("Saved '%s' to '%s'", name, fullPath)
	return nil
}

func (t *localTarget) Close() error { return nil }
