// Package storage writes classified day batches as JSON files under a base
// directory, laid out as base/YYYY/MM/DD.json.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/punchsync/internal/model"
)

// BatchPath returns the path for the given date's JSON file.
func BatchPath(base string, t time.Time) string {
	return filepath.Join(base, t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// SaveBatch atomically writes the batch for the given date, replacing any
// earlier file, and returns the path written.
func SaveBatch(base string, t time.Time, b model.DayBatch) (string, error) {
	path := BatchPath(base, t)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return path, nil
}
