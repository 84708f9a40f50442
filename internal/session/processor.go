package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mri-deid/internal/config"
	dcm "mri-deid/internal/dicom"
	"mri-deid/internal/identity"
	"mri-deid/internal/redact"
)

// Result carries one session's outcome back to the batch driver. At most one
// of the two collections is non-empty: a folder is either empty or it was
// processed file by file.
type Result struct {
	Failed    []string
	EmptyDirs []string
}

// Processor consumes one session directory per Process call: it decides
// visit novelty, derives the pseudonymous identifier and runs every file
// through load, extract, anonymize, write and validate. A failing file never
// stops the rest of its session.
type Processor struct {
	cfg  config.Config
	root string
	anon *redact.Anonymizer
	log  *slog.Logger
}

func NewProcessor(cfg config.Config, datasetRoot string, anon *redact.Anonymizer, log *slog.Logger) *Processor {
	return &Processor{
		cfg:  cfg,
		root: datasetRoot,
		anon: anon,
		log:  log,
	}
}

// Process runs the session in dir to completion. The generator holds the
// caller's previous-session state; each worker passes its own.
func (p *Processor) Process(gen *identity.Generator, dir string) Result {
	var res Result

	files, err := listFiles(dir)
	if err != nil {
		p.log.Error("could not list session directory", "dir", dir, "error", err)
		res.Failed = append(res.Failed, fmt.Sprintf("%s: %v", dir, err))
		return res
	}

	if len(files) == 0 {
		res.EmptyDirs = append(res.EmptyDirs, dir)
		return res
	}

	// Sorted order makes the zero-padded output indices reproducible
	// regardless of filesystem listing order.
	sort.Strings(files)

	token := gen.TokenFor(dir)

	for idx, name := range files {
		filePath := filepath.Join(dir, name)
		if err := p.processFile(filePath, token, idx); err != nil {
			p.log.Error("error processing file", "file", filePath, "error", err)
			res.Failed = append(res.Failed, fmt.Sprintf("%s: %v", filePath, err))
			continue
		}
	}

	p.log.Info("anonymized session", "dir", dir)
	return res
}

func (p *Processor) processFile(filePath, token string, idx int) error {
	ds, err := dcm.Load(filePath)
	if err != nil {
		return err
	}

	sessionToken, sex, age, err := identity.Extract(filePath)
	if err != nil {
		return err
	}
	patientID := identity.BuildID(token, sessionToken)

	if err := p.anon.Anonymize(ds, sex, age, patientID); err != nil {
		return err
	}

	outDir := p.outputDir(filePath, sessionToken, patientID)
	outPath := filepath.Join(outDir, fmt.Sprintf("%s%04d%s", p.cfg.FilePrefix, idx, p.cfg.FileExt))
	if err := ds.Save(outPath); err != nil {
		return err
	}

	// Best-effort integrity check: a validation failure is logged but does
	// not undo the write.
	if _, err := dcm.ValidateChecksum(outPath); err != nil {
		p.log.Warn("checksum validation failed", "file", outPath, "error", err)
	}

	return nil
}

// outputDir mirrors the source location: everything from the data marker
// onward is stripped, the dataset root becomes the output root, and the raw
// session token becomes the pseudonymous identifier.
func (p *Processor) outputDir(filePath, sessionToken, patientID string) string {
	out := filePath
	if i := strings.Index(out, p.cfg.DataMarker); i >= 0 {
		out = out[:i]
	}
	out = strings.Replace(out, p.root, p.cfg.OutputRoot, 1)
	out = strings.ReplaceAll(out, sessionToken, patientID)
	return out
}

// listFiles returns the names of the regular files directly inside dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}
