package session

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"mri-deid/internal/config"
	dcm "mri-deid/internal/dicom"
	"mri-deid/internal/identity"
	"mri-deid/internal/redact"
)

func testConfig() config.Config {
	return config.Config{
		OutputRoot:    "Anonymised",
		RedactDate:    "20250419",
		RedactTime:    "094338",
		SessionMarker: "EXP00000",
		DataMarker:    "DICOM",
		FilePrefix:    "EXP",
		FileExt:       ".dcm",
		CategoryPairs: []config.CategoryPair{{A: "T2_AX", B: "T2_SAG"}},
		Workers:       1,
	}
}

// chdirTemp moves the test into a fresh directory so the relative dataset
// and output roots never collide with digits in the temp path.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustElement(t *testing.T, tg tag.Tag, value string) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, []string{value})
	if err != nil {
		t.Fatalf("NewElement(%v): %v", tg, err)
	}
	return elem
}

func writeSourceFile(t *testing.T, path string) {
	t.Helper()
	ds := &dcm.Dataset{Data: dicom.Dataset{Elements: []*dicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, "1.2.840.10008.5.1.4.1.1.4"),
		mustElement(t, tag.MediaStorageSOPInstanceUID, "1.2.3.4.5"),
		mustElement(t, tag.TransferSyntaxUID, "1.2.840.10008.1.2.1"),
		mustElement(t, tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.4"),
		mustElement(t, tag.SOPInstanceUID, "1.2.3.4.5"),
		mustElement(t, tag.PatientID, "12"),
		mustElement(t, tag.PatientSex, "F"),
		mustElement(t, tag.PatientBirthDate, "19761104"),
		mustElement(t, tag.InstitutionName, "General Hospital"),
	}}}
	if err := ds.Save(path); err != nil {
		t.Fatalf("write source file %s: %v", path, err)
	}
}

func newTestProcessor(cfg config.Config) *Processor {
	anon := redact.NewAnonymizer(redact.NewRules(cfg))
	return NewProcessor(cfg, "Dataset", anon, discardLogger())
}

// outputFiles returns the sorted file names inside the single session output
// directory under the output root.
func outputFiles(t *testing.T, outputRoot string) (string, []string) {
	t.Helper()
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		t.Fatalf("read output root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d output subdirectories, want 1", len(entries))
	}
	dir := filepath.Join(outputRoot, entries[0].Name())

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return dir, names
}

func TestProcessWritesSequencedFiles(t *testing.T) {
	chdirTemp(t)
	cfg := testConfig()

	sessionDir := filepath.Join("Dataset", "12 F 034", "DICOM", "T2_AX", "EXP00000")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Created out of lexicographic order on purpose.
	for _, name := range []string{"c_img", "a_img", "b_img"} {
		writeSourceFile(t, filepath.Join(sessionDir, name))
	}

	proc := newTestProcessor(cfg)
	gen := identity.NewGenerator(cfg.CategoryPairs)
	res := proc.Process(gen, sessionDir)

	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	if len(res.EmptyDirs) != 0 {
		t.Fatalf("unexpected empty dirs: %v", res.EmptyDirs)
	}

	outDir, names := outputFiles(t, cfg.OutputRoot)
	want := []string{"EXP0000.dcm", "EXP0001.dcm", "EXP0002.dcm"}
	if len(names) != len(want) {
		t.Fatalf("got output files %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got output files %v, want %v", names, want)
		}
	}

	// Every file in the session carries the same even-length identifier and
	// the normalized sex/age values; the original institution is gone.
	var ids []string
	for _, name := range names {
		ds, err := dcm.Load(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("round trip load %s: %v", name, err)
		}
		id := ds.GetPatientID()
		if len(id)%2 != 0 {
			t.Errorf("%s: identifier %q has odd length", name, id)
		}
		if !strings.Contains(id, "12M") {
			t.Errorf("%s: identifier %q missing session token suffix", name, id)
		}
		if got := ds.GetPatientSex(); got != "F " {
			t.Errorf("%s: PatientSex = %q, want %q", name, got, "F ")
		}
		if got := ds.GetPatientAge(); got != "034Y" {
			t.Errorf("%s: PatientAge = %q, want %q", name, got, "034Y")
		}
		if got := ds.GetString(tag.InstitutionName); got != "" {
			t.Errorf("%s: InstitutionName = %q, want empty", name, got)
		}
		if got := ds.GetString(tag.PatientBirthDate); got != cfg.RedactDate {
			t.Errorf("%s: PatientBirthDate = %q, want %q", name, got, cfg.RedactDate)
		}
		ids = append(ids, id)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("identifiers differ within session: %q vs %q", ids[0], id)
		}
	}
}

func TestProcessEmptySession(t *testing.T) {
	chdirTemp(t)
	cfg := testConfig()

	sessionDir := filepath.Join("Dataset", "12 F 034", "DICOM", "T2_AX", "EXP00000")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatal(err)
	}

	proc := newTestProcessor(cfg)
	res := proc.Process(identity.NewGenerator(cfg.CategoryPairs), sessionDir)

	if len(res.EmptyDirs) != 1 || res.EmptyDirs[0] != sessionDir {
		t.Errorf("EmptyDirs = %v, want [%s]", res.EmptyDirs, sessionDir)
	}
	if len(res.Failed) != 0 {
		t.Errorf("Failed = %v, want empty", res.Failed)
	}
	if _, err := os.Stat(cfg.OutputRoot); !os.IsNotExist(err) {
		t.Error("empty session produced an output directory")
	}
}

func TestProcessCorruptFileAmongValid(t *testing.T) {
	chdirTemp(t)
	cfg := testConfig()

	sessionDir := filepath.Join("Dataset", "12 F 034", "DICOM", "T2_AX", "EXP00000")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a_img", "c_img", "d_img"} {
		writeSourceFile(t, filepath.Join(sessionDir, name))
	}
	corrupt := filepath.Join(sessionDir, "b_img")
	if err := os.WriteFile(corrupt, []byte("not a dicom record"), 0644); err != nil {
		t.Fatal(err)
	}

	proc := newTestProcessor(cfg)
	res := proc.Process(identity.NewGenerator(cfg.CategoryPairs), sessionDir)

	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want exactly one entry", res.Failed)
	}
	if !strings.Contains(res.Failed[0], corrupt) {
		t.Errorf("failure entry %q does not reference %s", res.Failed[0], corrupt)
	}

	_, names := outputFiles(t, cfg.OutputRoot)
	if len(names) != 3 {
		t.Errorf("got %d output files, want 3 (corrupt file skipped): %v", len(names), names)
	}
}

func TestProcessMissingIdentityPattern(t *testing.T) {
	chdirTemp(t)
	cfg := testConfig()

	// No "<digits> <F|M> <digits>" anywhere in the path: extraction must
	// fail per file, recorded, not defaulted.
	sessionDir := filepath.Join("Dataset", "subject", "DICOM", "T2_AX", "EXP00000")
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeSourceFile(t, filepath.Join(sessionDir, "a_img"))

	proc := newTestProcessor(cfg)
	res := proc.Process(identity.NewGenerator(cfg.CategoryPairs), sessionDir)

	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want exactly one entry", res.Failed)
	}
	if _, err := os.Stat(cfg.OutputRoot); !os.IsNotExist(err) {
		t.Error("extraction failure still produced output")
	}
}
