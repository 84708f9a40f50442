package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// CategoryPair names two series-folder prefixes that belong to the same
// patient visit. Consecutive session folders that differ only by one half of
// a pair are grouped under one pseudonymous identifier.
type CategoryPair struct {
	A string
	B string
}

type Config struct {
	// OutputRoot replaces the dataset root segment in mirrored output paths.
	OutputRoot string
	// RedactDate and RedactTime are the fixed literals written over date and
	// time fields during redaction.
	RedactDate string
	RedactTime string
	// SessionMarker is the path substring identifying a session directory
	// during the dataset walk.
	SessionMarker string
	// DataMarker is the path segment from which the original path is
	// truncated when deriving the output location.
	DataMarker string
	// FilePrefix and FileExt name the renamed output files
	// (prefix + zero-padded index + ext).
	FilePrefix string
	FileExt    string

	CategoryPairs []CategoryPair

	Workers int

	LogFile    string
	FailedFile string
	EmptyFile  string
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.OutputRoot = envOrDefault("DEID_OUTPUT_ROOT", "Anonymised")
	cfg.RedactDate = envOrDefault("DEID_REDACT_DATE", "20250419")
	cfg.RedactTime = envOrDefault("DEID_REDACT_TIME", "094338")
	cfg.SessionMarker = envOrDefault("DEID_SESSION_MARKER", "EXP00000")
	cfg.DataMarker = envOrDefault("DEID_DATA_MARKER", "DICOM")
	cfg.FilePrefix = envOrDefault("DEID_FILE_PREFIX", "EXP")
	cfg.FileExt = envOrDefault("DEID_FILE_EXT", ".dcm")

	cfg.LogFile = envOrDefault("DEID_LOG_FILE", "anonymization.log")
	cfg.FailedFile = envOrDefault("DEID_FAILED_REPORT", "problematic_files.json")
	cfg.EmptyFile = envOrDefault("DEID_EMPTY_REPORT", "empty_directories.json")

	pairs, err := parsePairs(envOrDefault("DEID_CATEGORY_PAIRS", "T2_AX=T2_SAG"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEID_CATEGORY_PAIRS: %w", err)
	}
	cfg.CategoryPairs = pairs

	workers, err := parseIntEnv("DEID_WORKERS", int64(runtime.NumCPU()))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEID_WORKERS: %w", err)
	}
	if workers < 1 {
		return Config{}, fmt.Errorf("DEID_WORKERS must be positive, got %d", workers)
	}
	cfg.Workers = int(workers)

	return cfg, nil
}

// parsePairs parses "A=B,C=D" into ordered category pairs.
func parsePairs(value string) ([]CategoryPair, error) {
	var pairs []CategoryPair
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		a, b, ok := strings.Cut(item, "=")
		if !ok || a == "" || b == "" {
			return nil, fmt.Errorf("invalid category pair %q", item)
		}
		pairs = append(pairs, CategoryPair{A: strings.TrimSpace(a), B: strings.TrimSpace(b)})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no category pairs configured")
	}
	return pairs, nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}
