// Package recording persists simulation runs to SQLite: one row per run
// with its topology and final counters, the emitted spike raster, and the
// final weight snapshot. Recorded rasters can be exported to Arrow IPC
// files for columnar analysis.
package recording

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/spike"
)

// Recorder writes runs to a SQLite database. It is not safe for
// concurrent use; the CLI owns one recorder per process.
type Recorder struct {
	db   *sql.DB
	path string
}

// Run is one recorded simulation run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Topology    string
	Neurons     int
	Connections int
	TimeStep    spike.Duration

	SpikesProcessed   uint64
	SpikesGenerated   uint64
	SimulationSteps   uint64
	PlasticityUpdates uint64
	FinalTime         spike.Time
}

// Open opens or creates the run database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize run database: %w", err)
	}
	return &Recorder{db: db, path: path}, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Recorder) Path() string {
	return r.path
}

// BeginRun registers a new run and returns its id.
func (r *Recorder) BeginRun(ctx context.Context, topology string, neurons, connections int, timeStep spike.Duration) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, topology, neurons, connections, time_step_ns)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), topology, neurons, connections, timeStep.Nanos())
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordSpikes appends a batch of emitted spikes to the run's raster,
// continuing the run's sequence numbering. The batch is written in one
// transaction.
func (r *Recorder) RecordSpikes(ctx context.Context, runID string, spikes []spike.Spike) error {
	if len(spikes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record spikes: begin: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM spikes WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("record spikes: next seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spikes (run_id, seq, source, timestamp_ns, amplitude) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record spikes: prepare: %w", err)
	}
	defer stmt.Close()

	for i, s := range spikes {
		if _, err := stmt.ExecContext(ctx, runID, next+i, uint32(s.Source), s.Timestamp.Nanos(), s.Amplitude); err != nil {
			return fmt.Errorf("record spikes: insert %d: %w", next+i, err)
		}
	}
	return tx.Commit()
}

// RecordWeights stores the run's final weight snapshot, replacing any
// previous snapshot for the run.
func (r *Recorder) RecordWeights(ctx context.Context, runID string, entries []connectivity.WeightEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record weights: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weights WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("record weights: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO weights (run_id, source, target, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record weights: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID, uint32(e.Source), uint32(e.Target), e.Weight); err != nil {
			return fmt.Errorf("record weights: insert %d->%d: %w", e.Source, e.Target, err)
		}
	}
	return tx.Commit()
}

// FinishRun stamps the run's end time and final engine counters.
func (r *Recorder) FinishRun(ctx context.Context, runID string, stats network.Stats) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, spikes_processed = ?, spikes_generated = ?,
		 simulation_steps = ?, plasticity_updates = ?, final_time_ns = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		stats.SpikesProcessed, stats.SpikesGenerated,
		stats.SimulationSteps, stats.PlasticityUpdates, stats.CurrentTime.Nanos(),
		runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// Runs lists recorded runs, most recent first.
func (r *Recorder) Runs(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, topology, neurons, connections, time_step_ns,
		 spikes_processed, spikes_generated, simulation_steps, plasticity_updates, final_time_ns
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by id.
func (r *Recorder) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, topology, neurons, connections, time_step_ns,
		 spikes_processed, spikes_generated, simulation_steps, plasticity_updates, final_time_ns
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, err
	}
	return &run, nil
}

// LatestRun fetches the most recently started run.
func (r *Recorder) LatestRun(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, topology, neurons, connections, time_step_ns,
		 spikes_processed, spikes_generated, simulation_steps, plasticity_updates, final_time_ns
		 FROM runs ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no recorded runs")
		}
		return nil, err
	}
	return &run, nil
}

// Spikes returns the run's raster in emission order.
func (r *Recorder) Spikes(ctx context.Context, runID string) ([]spike.Spike, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, timestamp_ns, amplitude FROM spikes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load spikes: %w", err)
	}
	defer rows.Close()

	var spikes []spike.Spike
	for rows.Next() {
		var source uint32
		var ts uint64
		var amp float32
		if err := rows.Scan(&source, &ts, &amp); err != nil {
			return nil, fmt.Errorf("load spikes: scan: %w", err)
		}
		spikes = append(spikes, spike.Spike{
			Source:    spike.NeuronID(source),
			Timestamp: spike.TimeFromNanos(ts),
			Amplitude: amp,
		})
	}
	return spikes, rows.Err()
}

// Weights returns the run's final weight snapshot ordered by (source,
// target).
func (r *Recorder) Weights(ctx context.Context, runID string) ([]connectivity.WeightEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, target, weight FROM weights WHERE run_id = ? ORDER BY source, target`, runID)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	defer rows.Close()

	var entries []connectivity.WeightEntry
	for rows.Next() {
		var source, target uint32
		var weight float32
		if err := rows.Scan(&source, &target, &weight); err != nil {
			return nil, fmt.Errorf("load weights: scan: %w", err)
		}
		entries = append(entries, connectivity.WeightEntry{
			Source: spike.NeuronID(source),
			Target: spike.NeuronID(target),
			Weight: weight,
		})
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	var timeStep, finalTime uint64
	err := row.Scan(&run.ID, &started, &finished, &run.Topology, &run.Neurons, &run.Connections,
		&timeStep, &run.SpikesProcessed, &run.SpikesGenerated, &run.SimulationSteps,
		&run.PlasticityUpdates, &finalTime)
	if err != nil {
		return Run{}, err
	}

	run.TimeStep = spike.DurationFromNanos(timeStep)
	run.FinalTime = spike.TimeFromNanos(finalTime)
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse run start time: %w", err)
	}
	if finished.Valid {
		at, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse run finish time: %w", err)
		}
		run.FinishedAt = &at
	}
	return run, nil
}
