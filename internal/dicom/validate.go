package dicom

import (
	"crypto/md5"
	"fmt"
	"os"
)

// ValidateChecksum recomputes a checksum over the written bytes and confirms
// the file still parses as a structurally valid record. Returns the checksum
// hex digest. Best-effort integrity check: callers log failures, they do not
// undo the write.
func ValidateChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read back file: %w", err)
	}
	sum := fmt.Sprintf("%x", md5.Sum(data))

	if _, err := Load(path); err != nil {
		return "", fmt.Errorf("re-parse failed: %w", err)
	}
	return sum, nil
}
