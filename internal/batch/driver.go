package batch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"mri-deid/internal/config"
	"mri-deid/internal/identity"
	"mri-deid/internal/redact"
	"mri-deid/internal/report"
	"mri-deid/internal/session"
)

// Driver walks the dataset tree once, dispatches each discovered session
// directory to a fixed pool of workers and aggregates their results into the
// batch report.
type Driver struct {
	cfg config.Config
	log *slog.Logger

	// OnSessionDone is invoked after each session completes; used by the
	// CLI to drive the progress bar. May be nil.
	OnSessionDone func(done, total int)
}

func NewDriver(cfg config.Config, log *slog.Logger) *Driver {
	return &Driver{cfg: cfg, log: log}
}

// Run processes every session under datasetRoot and returns the aggregated
// report. Per-file failures never abort the batch; only a failed tree walk
// is fatal.
func (d *Driver) Run(datasetRoot string) (*report.Batch, error) {
	dirs, err := d.Discover(datasetRoot)
	if err != nil {
		return nil, fmt.Errorf("dataset walk failed: %w", err)
	}

	d.log.Info("discovered sessions", "count", len(dirs), "root", datasetRoot)

	anon := redact.NewAnonymizer(redact.NewRules(d.cfg))
	proc := session.NewProcessor(d.cfg, datasetRoot, anon, d.log)

	work := make(chan string)
	results := make(chan session.Result)

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Previous-session state is per worker: each worker owns one
			// generator and passes it into every call. Visit continuity
			// across a category pair therefore requires the two folders to
			// land on the same worker back to back.
			gen := identity.NewGenerator(d.cfg.CategoryPairs)
			wLog := d.log.With(slog.Int("worker", workerID))
			for dir := range work {
				wLog.Debug("processing session", "dir", dir)
				results <- proc.Process(gen, dir)
			}
		}(i)
	}

	go func() {
		for _, dir := range dirs {
			work <- dir
		}
		close(work)
		wg.Wait()
		close(results)
	}()

	batch := &report.Batch{}
	done := 0
	for res := range results {
		batch.Merge(res.Failed, res.EmptyDirs)
		done++
		if d.OnSessionDone != nil {
			d.OnSessionDone(done, len(dirs))
		}
	}

	return batch, nil
}

// Discover returns every directory under root whose path carries the
// session marker, in walk order.
func (d *Driver) Discover(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && strings.Contains(path, d.cfg.SessionMarker) {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
