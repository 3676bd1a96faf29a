// Package persistence stores run history in SQLite and archives committed years
// as compressed JSONL.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/famine-sim/internal/engine"
	"github.com/talgya/famine-sim/internal/world"
)

// ErrReseedMismatch is returned when a run is replayed into a store that recorded
// it under a different seed.
var ErrReseedMismatch = errors.New("seed fingerprint does not match the recorded run")

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run is one recorded simulation.
type Run struct {
	ID              string    `db:"id" json:"id"`
	SeedFingerprint string    `db:"seed_fingerprint" json:"seed_fingerprint"`
	Variant         int       `db:"variant" json:"variant"`
	StartYear       int       `db:"start_year" json:"start_year"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RegionYear is the summary row of one region-year.
type RegionYear struct {
	RunID          string  `db:"run_id" json:"-"`
	Year           int     `db:"year" json:"year"`
	Region         string  `db:"region" json:"region"`
	Population     float64 `db:"population" json:"population"`
	Undernourished float64 `db:"undernourished" json:"undernourished"`
	LandArable     float64 `db:"land_arable" json:"land_arable"`
	CropLand       float64 `db:"crop_land" json:"crop_land"`
	Need           float64 `db:"need" json:"need"`
	Delivered      float64 `db:"delivered" json:"delivered"`
	HDI            float64 `db:"hdi" json:"hdi"`
	Revenue        float64 `db:"revenue" json:"revenue"`
	SliceJSON      string  `db:"slice_json" json:"-"`
}

// Slice decodes the full year slice stored with the row.
func (r RegionYear) Slice() (world.YearSlice, error) {
	var s world.YearSlice
	if err := json.Unmarshal([]byte(r.SliceJSON), &s); err != nil {
		return s, fmt.Errorf("decode slice %s %d: %w", r.Region, r.Year, err)
	}
	return s, nil
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed_fingerprint TEXT NOT NULL,
		variant INTEGER NOT NULL,
		start_year INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS region_years (
		run_id TEXT NOT NULL REFERENCES runs(id),
		year INTEGER NOT NULL,
		region TEXT NOT NULL,
		population REAL NOT NULL,
		undernourished REAL NOT NULL,
		land_arable REAL NOT NULL,
		crop_land REAL NOT NULL,
		need REAL NOT NULL,
		delivered REAL NOT NULL,
		hdi REAL NOT NULL,
		revenue REAL NOT NULL,
		slice_json TEXT NOT NULL,
		PRIMARY KEY (run_id, year, region)
	);

	CREATE TABLE IF NOT EXISTS global_years (
		run_id TEXT NOT NULL REFERENCES runs(id),
		year INTEGER NOT NULL,
		sea_level REAL NOT NULL,
		population REAL NOT NULL,
		undernourished REAL NOT NULL,
		hdi REAL NOT NULL,
		revenue REAL NOT NULL,
		global_json TEXT NOT NULL,
		PRIMARY KEY (run_id, year)
	);

	CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		year INTEGER NOT NULL,
		phase TEXT NOT NULL,
		region TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_warnings_run_year ON warnings(run_id, year);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a run. An empty ID creates a new run; an existing ID is a
// replay and must carry the seed fingerprint it was recorded with. Replayed years
// overwrite the recorded ones.
func (db *DB) BeginRun(ctx context.Context, id, fingerprint string, variant, startYear int) (Run, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", id, err)
	}

	var existing Run
	err := db.conn.GetContext(ctx, &existing, "SELECT * FROM runs WHERE id = ?", id)
	switch {
	case err == nil:
		if existing.SeedFingerprint != fingerprint {
			return Run{}, fmt.Errorf("run %s: %w", id, ErrReseedMismatch)
		}
		slog.Info("replaying recorded run", "run", id, "start_year", existing.StartYear)
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}

	run := Run{
		ID:              id,
		SeedFingerprint: fingerprint,
		Variant:         variant,
		StartYear:       startYear,
		CreatedAt:       time.Now().UTC(),
	}
	_, err = db.conn.NamedExecContext(ctx, `INSERT INTO runs (id, seed_fingerprint, variant, start_year, created_at)
		VALUES (:id, :seed_fingerprint, :variant, :start_year, :created_at)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run %s: %w", id, err)
	}
	if err := db.SaveMeta("last_run", id); err != nil {
		return Run{}, fmt.Errorf("save meta: %w", err)
	}
	return run, nil
}

// SaveYear writes every region's slice, the global slice and the warnings of one
// committed year in a single transaction, and drops any later years of the run.
func (db *DB) SaveYear(ctx context.Context, runID string, year int, slices [world.NumRegions]world.YearSlice, global world.GlobalSlice, warnings []engine.Warning) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `INSERT OR REPLACE INTO region_years
		(run_id, year, region, population, undernourished, land_arable, crop_land,
		 need, delivered, hdi, revenue, slice_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for code := range slices {
		s := &slices[code]
		sliceJSON, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode slice %s: %w", world.RegionCode(code), err)
		}
		_, err = stmt.ExecContext(ctx,
			runID, year, world.RegionCode(code).String(),
			s.Population, s.Undernourished, s.LandArable, s.TotalCropLand(),
			s.TotalNeed(), s.TotalDelivered(), s.HDI, s.Revenue,
			string(sliceJSON),
		)
		if err != nil {
			return fmt.Errorf("insert region year %s %d: %w", world.RegionCode(code), year, err)
		}
	}

	globalJSON, err := json.Marshal(global)
	if err != nil {
		return fmt.Errorf("encode global %d: %w", year, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO global_years
		(run_id, year, sea_level, population, undernourished, hdi, revenue, global_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, year, global.SeaLevel, global.Population, global.Undernourished, global.HDI, global.Revenue, string(globalJSON),
	)
	if err != nil {
		return fmt.Errorf("insert global year %d: %w", year, err)
	}

	// A replay rewrites the run from its start; years recorded past this one
	// belong to the superseded history.
	for _, table := range []string{"region_years", "global_years", "warnings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ? AND year > ?", runID, year); err != nil {
			return fmt.Errorf("trim %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM warnings WHERE run_id = ? AND year = ?", runID, year); err != nil {
		return err
	}
	for _, w := range warnings {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO warnings (run_id, year, phase, region, message) VALUES (?, ?, ?, ?, ?)",
			runID, w.Year, w.Phase, w.Region, w.Message,
		)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_year', ?)", fmt.Sprint(year)); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Runs lists recorded runs, newest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := db.conn.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY created_at DESC, id")
	return runs, err
}

// RegionHistory returns the recorded years of one region in year order.
func (db *DB) RegionHistory(ctx context.Context, runID string, code world.RegionCode) ([]RegionYear, error) {
	var rows []RegionYear
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM region_years WHERE run_id = ? AND region = ? ORDER BY year",
		runID, code.String(),
	)
	return rows, err
}

// LastYear returns the latest recorded year of a run, or 0 when none is recorded.
func (db *DB) LastYear(ctx context.Context, runID string) (int, error) {
	var year sql.NullInt64
	err := db.conn.GetContext(ctx, &year, "SELECT MAX(year) FROM global_years WHERE run_id = ?", runID)
	if err != nil {
		return 0, err
	}
	return int(year.Int64), nil
}

// WarningCount returns the number of warnings recorded for a run year.
func (db *DB) WarningCount(ctx context.Context, runID string, year int) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM warnings WHERE run_id = ? AND year = ?", runID, year)
	return n, err
}

// Recorder saves every committed year of a simulation under one run.
type Recorder struct {
	db  *DB
	run Run
}

// NewRecorder begins (or resumes the replay of) a run for a simulation.
func NewRecorder(ctx context.Context, db *DB, runID string, sim *engine.Simulation) (*Recorder, error) {
	run, err := db.BeginRun(ctx, runID, sim.Fingerprint(), sim.Variant(), sim.StartYear())
	if err != nil {
		return nil, err
	}
	return &Recorder{db: db, run: run}, nil
}

// Run returns the recorded run.
func (r *Recorder) Run() Run {
	return r.run
}

// YearCommitted implements engine.Observer.
func (r *Recorder) YearCommitted(ctx context.Context, sim *engine.Simulation, year int) error {
	slices, global, err := sim.YearSlices(year)
	if err != nil {
		return err
	}
	if err := r.db.SaveYear(ctx, r.run.ID, year, slices, global, sim.Warnings()); err != nil {
		return fmt.Errorf("save year %d: %w", year, err)
	}
	return nil
}
