package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/plasmid-sim/plasmid-sim/sim"

	_ "modernc.org/sqlite"
)

// RunRow describes a finished run.
type RunRow struct {
	RunID      string
	Seed       int64
	Ticks      int
	StopReason string
}

// SQLiteStore persists export records and run metadata. It implements
// sim.Observer and sim.Finisher: records are written every Every ticks
// (tick 0 included) and always at the final tick.
type SQLiteStore struct {
	path  string
	runID string
	// Every is the export interval in ticks; 0 exports the final tick only.
	Every int

	mu        sync.RWMutex
	db        *sql.DB
	lastSaved int
}

// NewSQLiteStore creates a store for one run. An empty runID is replaced by a random UUID.
func NewSQLiteStore(path, runID string, every int) *SQLiteStore {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &SQLiteStore{path: path, runID: runID, Every: every, lastSaved: -1}
}

// RunID returns the identifier stamped on every record of this run.
func (s *SQLiteStore) RunID() string {
	return s.runID
}

// Init opens the database and creates the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveRecords writes records in a single transaction.
func (s *SQLiteStore) SaveRecords(ctx context.Context, records []Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plasmid_records (run_id, tick, pid, clone_count, x, y, pb, rm, cm, am, ec, tp, inc, res)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, tick, pid) DO UPDATE SET
			clone_count = excluded.clone_count,
			x = excluded.x,
			y = excluded.y
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Tick, r.PID, r.CloneCount, r.X, r.Y,
			r.PB, r.RM, r.CM, r.AM, r.EC, r.TP, r.Inc, r.Res); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert pid %d at tick %d: %w", r.PID, r.Tick, err)
		}
	}
	return tx.Commit()
}

// GetRecords loads every record of a run ordered by tick and pid.
func (s *SQLiteStore) GetRecords(ctx context.Context, runID string) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, tick, pid, clone_count, x, y, pb, rm, cm, am, ec, tp, inc, res
		FROM plasmid_records WHERE run_id = ? ORDER BY tick, pid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RunID, &r.Tick, &r.PID, &r.CloneCount, &r.X, &r.Y,
			&r.PB, &r.RM, &r.CM, &r.AM, &r.EC, &r.TP, &r.Inc, &r.Res); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveRun upserts run metadata.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRow) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, seed, ticks, stop_reason)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			seed = excluded.seed,
			ticks = excluded.ticks,
			stop_reason = excluded.stop_reason
	`, run.RunID, run.Seed, run.Ticks, run.StopReason)
	return err
}

// GetRun loads run metadata.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (RunRow, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunRow{}, false, err
	}
	var run RunRow
	err = db.QueryRowContext(ctx, `SELECT run_id, seed, ticks, stop_reason FROM runs WHERE run_id = ?`, runID).
		Scan(&run.RunID, &run.Seed, &run.Ticks, &run.StopReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRow{}, false, nil
		}
		return RunRow{}, false, err
	}
	return run, true, nil
}

// ObserveTick exports the state when the tick falls on the export interval.
func (s *SQLiteStore) ObserveTick(ctx context.Context, st *sim.State, _ sim.Summary) error {
	if s.Every <= 0 || st.Tick%s.Every != 0 {
		return nil
	}
	return s.export(ctx, st)
}

// Finish exports the final tick, unless already exported, and records the run.
func (s *SQLiteStore) Finish(ctx context.Context, st *sim.State, _ sim.Summary, reason sim.StopReason) error {
	if s.lastSaved != st.Tick {
		if err := s.export(ctx, st); err != nil {
			return err
		}
	}
	return s.SaveRun(ctx, RunRow{RunID: s.runID, Seed: st.Config.Seed, Ticks: st.Tick, StopReason: string(reason)})
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) export(ctx context.Context, st *sim.State) error {
	records := Records(s.runID, st)
	if err := s.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("export tick %d: %w", st.Tick, err)
	}
	s.lastSaved = st.Tick
	logrus.Debugf("[tick %05d] exported %d plasmid records", st.Tick, len(records))
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		stop_reason TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plasmid_records (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		clone_count INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		pb REAL NOT NULL,
		rm REAL NOT NULL,
		cm REAL NOT NULL,
		am REAL NOT NULL,
		ec REAL NOT NULL,
		tp REAL NOT NULL,
		inc INTEGER NOT NULL,
		res INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, pid)
	)`,
}

func createTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
