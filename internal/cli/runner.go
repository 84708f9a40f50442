package cli

import (
	"fmt"
	"os"
	"strings"

	"mri-deid/internal/batch"
	"mri-deid/internal/config"
	"mri-deid/internal/report"
)

// Options holds CLI configuration options
type Options struct {
	Path string
}

// Run executes the de-identification batch.
func Run(opts Options) error {
	if opts.Path == "" {
		return fmt.Errorf("dataset root path is required")
	}

	info, err := os.Stat(opts.Path)
	if err != nil {
		return fmt.Errorf("dataset root does not exist: %s", opts.Path)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset root is not a directory: %s", opts.Path)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, logFile, err := report.OpenLog(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("could not open run log: %w", err)
	}
	defer logFile.Close()

	printHeader(opts, cfg)

	pb := newProgressBar(50)
	driver := batch.NewDriver(cfg, logger)
	driver.OnSessionDone = func(done, total int) {
		pb.update(done, total)
	}

	rep, err := driver.Run(opts.Path)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	fmt.Println()

	if err := rep.Write(cfg.FailedFile, cfg.EmptyFile); err != nil {
		return fmt.Errorf("could not write reports: %w", err)
	}

	logger.Info("anonymisation process completed")
	printSummary(rep, cfg)

	return nil
}

// PrintUsage prints CLI usage information
func PrintUsage() {
	fmt.Println(`MRI Dataset De-Identifier

Batch-processes a directory tree of DICOM files, stripping direct and
quasi-identifiers while keeping a pseudonymized subset (sex, age, derived
patient ID). De-identified copies are written to a mirrored tree under the
output root; per-file failures are collected, never fatal.

USAGE:
  deidentify -P <path>

FLAGS:
  -P, --path <path>   Root path of the dataset (required)
  -h, --help          Show this help message

CONFIGURATION (environment, .env supported):
  DEID_OUTPUT_ROOT      Output tree root name (default: Anonymised)
  DEID_REDACT_DATE      Literal written over date fields (default: 20250419)
  DEID_REDACT_TIME      Literal written over time fields (default: 094338)
  DEID_CATEGORY_PAIRS   Series prefixes grouped as one visit
                        (default: T2_AX=T2_SAG)
  DEID_SESSION_MARKER   Session directory sentinel (default: EXP00000)
  DEID_WORKERS          Worker pool size (default: number of CPUs)
  DEID_LOG_FILE         Run log path (default: anonymization.log)

OUTPUT:
  Mirrored tree under the output root, files renamed EXP0000.dcm ...
  problematic_files.json   Failed files with error text
  empty_directories.json   Session folders that held no files
  anonymization.log        Chronological run log

Exit status reflects only startup failure; individual file failures are
reported through the artifacts above.`)
}

// printHeader prints the CLI header with configuration
func printHeader(opts Options, cfg config.Config) {
	fmt.Println("MRI Dataset De-Identifier")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Dataset:   %s\n", opts.Path)
	fmt.Printf("Output:    %s\n", cfg.OutputRoot)
	fmt.Printf("Workers:   %d\n", cfg.Workers)

	var pairs []string
	for _, p := range cfg.CategoryPairs {
		pairs = append(pairs, p.A+"="+p.B)
	}
	fmt.Printf("Visits:    %s\n", strings.Join(pairs, ", "))
	fmt.Println()
}

// printSummary prints the processing summary
func printSummary(rep *report.Batch, cfg config.Config) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Complete! %d failed file(s), %d empty session folder(s)\n",
		len(rep.Failed), len(rep.EmptyDirs))
	fmt.Printf("Reports:   %s, %s\n", cfg.FailedFile, cfg.EmptyFile)
	fmt.Printf("Log:       %s\n", cfg.LogFile)
}

// progressBar represents a terminal progress bar
type progressBar struct {
	width int
}

// newProgressBar creates a new progress bar with specified width
func newProgressBar(width int) *progressBar {
	return &progressBar{width: width}
}

// update updates the progress bar display
func (pb *progressBar) update(current, total int) {
	if total == 0 {
		return
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}

	bar := strings.Repeat("#", filled) + strings.Repeat("-", pb.width-filled)
	fmt.Printf("\r[%s] %3.0f%%  (%d/%d)", bar, percent*100, current, total)
}
