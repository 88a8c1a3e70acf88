// Package store provides SQLite-backed records of simulation runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// ErrNotFound is returned when a run or batch does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the run database.
type Store struct {
	db *sql.DB
}

// Run is one recorded simulation.
type Run struct {
	ID        string     `json:"id"`
	Seed      int64      `json:"seed"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Config    string     `json:"config,omitempty"`
	Ticks     uint64     `json:"ticks"`
	Metrics   string     `json:"metrics,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Open creates the database at path if needed and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			config TEXT,
			ticks INTEGER NOT NULL DEFAULT 0,
			metrics TEXT,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS batches (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			discovered INTEGER NOT NULL,
			deltas INTEGER NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			robot INTEGER NOT NULL,
			kind TEXT NOT NULL,
			task TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			resource TEXT,
			amount INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, seq),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_robot ON events(run_id, robot, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- Run Operations ---

// CreateRun inserts a new run. cfg is stored as JSON for reference.
func (s *Store) CreateRun(ctx context.Context, seed int64, width, height int, cfg any) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Seed:      seed,
		Width:     width,
		Height:    height,
		StartedAt: time.Now().UTC(),
	}
	if cfg != nil {
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		run.Config = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, seed, width, height, config, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.Width, run.Height, run.Config, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the final tick count and metrics of a run.
func (s *Store) FinishRun(ctx context.Context, id string, ticks uint64, metrics any) error {
	raw, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ticks = ?, metrics = ?, ended_at = ? WHERE id = ?`,
		ticks, string(raw), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, seed, width, height, config, ticks, metrics, started_at, ended_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seed, width, height, config, ticks, metrics, started_at, ended_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var cfg, metrics sql.NullString
	var ended sql.NullTime
	if err := sc.Scan(&run.ID, &run.Seed, &run.Width, &run.Height, &cfg, &run.Ticks, &metrics, &run.StartedAt, &ended); err != nil {
		return nil, err
	}
	run.Config = cfg.String
	run.Metrics = metrics.String
	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	return &run, nil
}

// --- Batch Operations ---

// RecordBatch stores one tick's batch and its events in a single transaction.
func (s *Store) RecordBatch(ctx context.Context, runID string, b sim.Batch) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (run_id, tick, discovered, deltas, events, raw_json) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, b.Tick, len(b.Discovered), len(b.ResourceDeltas), len(b.Events), string(raw))
	if err != nil {
		return fmt.Errorf("insert batch %d: %w", b.Tick, err)
	}

	for i, e := range b.Events {
		var res sql.NullString
		if e.Kind == sim.EventCollected || e.Kind == sim.EventDelivered {
			res = sql.NullString{String: e.Resource.String(), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (run_id, tick, seq, robot, kind, task, x, y, resource, amount)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, e.Tick, i, int(e.Robot), e.Kind.String(), e.Task.String(), e.Pos.X, e.Pos.Y, res, e.Amount)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Batch loads the batch recorded for tick.
func (s *Store) Batch(ctx context.Context, runID string, tick uint64) (sim.Batch, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_json FROM batches WHERE run_id = ? AND tick = ?`, runID, tick).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.Batch{}, fmt.Errorf("batch %d: %w", tick, ErrNotFound)
	}
	if err != nil {
		return sim.Batch{}, err
	}
	var b sim.Batch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return sim.Batch{}, fmt.Errorf("decode batch %d: %w", tick, err)
	}
	return b, nil
}

// EventFilter narrows an event query. Zero fields match everything.
type EventFilter struct {
	Robot *core.RobotID
	Kind  *sim.EventKind
	Limit int
}

// Events lists recorded events in tick order.
func (s *Store) Events(ctx context.Context, runID string, f EventFilter) ([]sim.Event, error) {
	query := `SELECT tick, robot, kind, task, x, y, resource, amount FROM events WHERE run_id = ?`
	args := []any{runID}
	if f.Robot != nil {
		query += ` AND robot = ?`
		args = append(args, int(*f.Robot))
	}
	if f.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, f.Kind.String())
	}
	query += ` ORDER BY tick, seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sim.Event
	for rows.Next() {
		var e sim.Event
		var robot int
		var kind, task string
		var res sql.NullString
		if err := rows.Scan(&e.Tick, &robot, &kind, &task, &e.Pos.X, &e.Pos.Y, &res, &e.Amount); err != nil {
			return nil, err
		}
		e.Robot = core.RobotID(robot)
		if e.Kind, err = sim.ParseEventKind(kind); err != nil {
			return nil, err
		}
		if err := e.Task.UnmarshalText([]byte(task)); err != nil {
			return nil, err
		}
		if res.Valid {
			if e.Resource, err = core.ParseResourceKind(res.String); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Deliveries sums delivered units per resource kind for a run.
func (s *Store) Deliveries(ctx context.Context, runID string) (map[core.ResourceKind]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource, SUM(amount) FROM events WHERE run_id = ? AND kind = ? GROUP BY resource`,
		runID, sim.EventDelivered.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[core.ResourceKind]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		k, err := core.ParseResourceKind(name)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}
