package recording

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 holds one row per run plus the spike raster and final weight
// snapshot recorded for it.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,

    -- Topology at run start
    topology TEXT NOT NULL,       -- 'graph', 'dense', 'sparse', 'hypergraph'
    neurons INTEGER NOT NULL,
    connections INTEGER NOT NULL,
    time_step_ns INTEGER NOT NULL,

    -- Engine counters at run end
    spikes_processed INTEGER DEFAULT 0,
    spikes_generated INTEGER DEFAULT 0,
    simulation_steps INTEGER DEFAULT 0,
    plasticity_updates INTEGER DEFAULT 0,
    final_time_ns INTEGER DEFAULT 0
);

-- Emitted spikes, in emission order per run
CREATE TABLE IF NOT EXISTS spikes (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    source INTEGER NOT NULL,
    timestamp_ns INTEGER NOT NULL,
    amplitude REAL NOT NULL,
    PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_spikes_run ON spikes(run_id);

-- Final weight snapshot per run
CREATE TABLE IF NOT EXISTS weights (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    source INTEGER NOT NULL,
    target INTEGER NOT NULL,
    weight REAL NOT NULL,
    PRIMARY KEY (run_id, source, target)
);

CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER PRIMARY KEY
);
`

// initSchema creates the tables and records the schema version.
func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_info (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
