// Package pipeline drives the job: it walks the song_data and log_data
// trees and loads every file in its own transaction, songs first.
//
// Files are processed sequentially on one connection. A parse, I/O or row
// write error rolls back the current file and aborts the run. A failed bulk
// load is rolled back to its savepoint by the storage layer, counted in
// Stats and the run goes on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sparkify/internal/datasource/file"
	"sparkify/internal/metrics"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// Job labels every metric this package records.
const Job = "sparkify"

// Phase names.
const (
	PhaseSongData = "song_data"
	PhaseLogData  = "log_data"
)

// Driver runs Phases in order against DB.
type Driver struct {
	DB  storage.DB
	Log *zap.Logger
	// Pattern is the base-name glob of input files; empty means *.json.
	Pattern string
	Phases  []Phase
}

// New returns a Driver for the standard two-phase run.
func New(db storage.DB, log *zap.Logger, songRoot, logRoot, pattern string) *Driver {
	return &Driver{
		DB:      db,
		Log:     log,
		Pattern: pattern,
		Phases:  DefaultPhases(songRoot, logRoot),
	}
}

// ValidatePhases checks that every phase is runnable and that the song
// phase runs before the log phase, which resolves plays against it.
func ValidatePhases(phases []Phase) error {
	if len(phases) == 0 {
		return errors.New("pipeline: no phases configured")
	}
	seen := make(map[string]int, len(phases))
	for i, p := range phases {
		switch {
		case p.Name == "":
			return fmt.Errorf("pipeline: phase %d has no name", i)
		case p.Root == "":
			return fmt.Errorf("pipeline: phase %s has no root directory", p.Name)
		case p.Process == nil:
			return fmt.Errorf("pipeline: phase %s has no processor", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("pipeline: duplicate phase %s", p.Name)
		}
		seen[p.Name] = i
	}
	if logIdx, ok := seen[PhaseLogData]; ok {
		songIdx, ok := seen[PhaseSongData]
		if !ok || songIdx > logIdx {
			return fmt.Errorf("pipeline: phase %s must run after %s", PhaseLogData, PhaseSongData)
		}
	}
	return nil
}

// Run executes every phase. On error the returned Stats cover the files
// committed before the failure.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	st := newStats()
	if d.DB == nil {
		return st, errors.New("pipeline: no database")
	}
	if err := ValidatePhases(d.Phases); err != nil {
		return st, err
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	for _, ph := range d.Phases {
		if err := d.runPhase(ctx, log.With(zap.String("phase", ph.Name)), ph, &st); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (d *Driver) runPhase(ctx context.Context, log *zap.Logger, ph Phase, st *Stats) error {
	files, err := file.Discover(ph.Root, d.Pattern)
	if err != nil {
		return fmt.Errorf("%s: %w", ph.Name, err)
	}
	total := len(files)
	log.Info(fmt.Sprintf("%d files found in %s", total, ph.Root))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		fst, err := d.processFile(ctx, log.With(zap.String("file", path)), ph, path)
		metrics.RecordFile(Job, ph.Name, err)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", ph.Name, path, err)
		}
		st.add(fst)
		st.Files[ph.Name]++
		recordFileStats(fst)

		log.Info("file processed",
			zap.String("file", path),
			zap.Int("done", i+1),
			zap.Int("total", total),
		)
	}
	return nil
}

// processFile runs ph.Process for one file inside one transaction.
func (d *Driver) processFile(ctx context.Context, log *zap.Logger, ph Phase, path string) (fst Stats, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(Job, ph.Name, err, time.Since(start)) }()

	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()

	tx, err := d.DB.BeginTx(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("begin tx: %w", err)
	}
	w := storage.NewWriter(tx, d.DB.Dialect(), log)

	fst, err = ph.Process(ctx, w, rc)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return Stats{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Stats{}, fmt.Errorf("commit: %w", err)
	}
	return fst, nil
}

func recordFileStats(fst Stats) {
	for table, n := range fst.Rows {
		metrics.RecordRows(Job, table, "written", n)
	}
	for table, n := range fst.FailedRows {
		metrics.RecordRows(Job, table, "failed", n)
	}
	metrics.RecordRows(Job, schema.SongPlays, "unmatched", fst.Unmatched)
}
