package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// OpenLog opens the append-only run log and returns a structured logger
// writing timestamped, leveled entries to it. The caller owns the returned
// closer.
func OpenLog(path string) (*slog.Logger, *os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(file, nil))
	return logger, file, nil
}
