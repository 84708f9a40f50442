package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// Batch accumulates the two outcome collections across all sessions: failed
// file paths with error text, and empty session directories. Built once per
// run, written once at the end.
type Batch struct {
	Failed    []string
	EmptyDirs []string
}

// Merge folds one session's outcome into the batch report.
func (b *Batch) Merge(failed, emptyDirs []string) {
	b.Failed = append(b.Failed, failed...)
	b.EmptyDirs = append(b.EmptyDirs, emptyDirs...)
}

// Write persists the two report artifacts as serialized JSON arrays. A run
// with no problems still writes both files, each holding an empty array.
func (b *Batch) Write(failedPath, emptyPath string) error {
	if err := writeJSON(failedPath, b.Failed); err != nil {
		return fmt.Errorf("write failed-files report: %w", err)
	}
	if err := writeJSON(emptyPath, b.EmptyDirs); err != nil {
		return fmt.Errorf("write empty-directories report: %w", err)
	}
	return nil
}

func writeJSON(path string, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
