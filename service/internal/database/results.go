// Package database stores finished-game results in Postgres or SQLite.
//
// Results are a statistics sink. Nothing is ever read back into a live
// table.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDSN is returned by Open for unknown connection strings.
var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// GameResult is one finished game.
type GameResult struct {
	ID        uuid.UUID `json:"id"`
	TableID   uuid.UUID `json:"tableId"`
	Variant   string    `json:"variant"`
	Outcome   string    `json:"outcome"` // won, lost, finished
	Winner    string    `json:"winner,omitempty"`
	Discarded int       `json:"discarded"`
	Moves     int       `json:"moves"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Store persists results.
type Store interface {
	SaveResult(ctx context.Context, res GameResult) error
	RecentResults(ctx context.Context, variant string, limit int) ([]GameResult, error)
	Close() error
}

const schema = `CREATE TABLE IF NOT EXISTS game_results (
	id TEXT PRIMARY KEY,
	table_id TEXT NOT NULL,
	variant TEXT NOT NULL,
	outcome TEXT NOT NULL,
	winner TEXT NOT NULL DEFAULT '',
	discarded INTEGER NOT NULL,
	moves INTEGER NOT NULL,
	started_at BIGINT NOT NULL,
	ended_at BIGINT NOT NULL
)`

const indexSchema = `CREATE INDEX IF NOT EXISTS game_results_variant_ended ON game_results (variant, ended_at)`

// Open connects to dsn: postgres:// or postgresql:// URLs use pgx, sqlite:
// and file: use SQLite. The schema is created if missing.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		return openSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("open %q: %w", redact(dsn), ErrUnsupportedDSN)
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

const selectResults = `SELECT id, table_id, variant, outcome, winner, discarded, moves, started_at, ended_at
	FROM game_results`

// recentQuery lists the newest results, filtered by variant unless it is
// empty. arg renders the n-th bind placeholder for the driver.
func recentQuery(variant string, limit int, arg func(n int) string) (string, []any) {
	q := selectResults
	var args []any
	if variant != "" {
		args = append(args, variant)
		q += " WHERE variant = " + arg(len(args))
	}
	args = append(args, normalizeLimit(limit))
	q += " ORDER BY ended_at DESC LIMIT " + arg(len(args))
	return q, args
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

// ---------------------------------------------------------------------------
// Postgres
// ---------------------------------------------------------------------------

type pgStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string) (*pgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range []string{schema, indexSchema} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) SaveResult(ctx context.Context, res GameResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (id, table_id, variant, outcome, winner, discarded, moves, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID.String(), res.TableID.String(), res.Variant, res.Outcome, res.Winner,
		res.Discarded, res.Moves, res.StartedAt.UnixMilli(), res.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert result %s: %w", res.ID, err)
	}
	return nil
}

func (s *pgStore) RecentResults(ctx context.Context, variant string, limit int) ([]GameResult, error) {
	q, args := recentQuery(variant, limit, func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		res, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

// ---------------------------------------------------------------------------
// SQLite
// ---------------------------------------------------------------------------

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, path string) (*sqliteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range []string{schema, indexSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) SaveResult(ctx context.Context, res GameResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_results (id, table_id, variant, outcome, winner, discarded, moves, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.TableID.String(), res.Variant, res.Outcome, res.Winner,
		res.Discarded, res.Moves, res.StartedAt.UnixMilli(), res.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert result %s: %w", res.ID, err)
	}
	return nil
}

func (s *sqliteStore) RecentResults(ctx context.Context, variant string, limit int) ([]GameResult, error) {
	q, args := recentQuery(variant, limit, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		res, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func scanResult(scan func(dest ...any) error) (GameResult, error) {
	var (
		res              GameResult
		id, tableID      string
		started, ended   int64
		discarded, moves int64
	)
	if err := scan(&id, &tableID, &res.Variant, &res.Outcome, &res.Winner, &discarded, &moves, &started, &ended); err != nil {
		return GameResult{}, fmt.Errorf("scan result: %w", err)
	}
	var err error
	if res.ID, err = uuid.Parse(id); err != nil {
		return GameResult{}, fmt.Errorf("parse result id: %w", err)
	}
	if res.TableID, err = uuid.Parse(tableID); err != nil {
		return GameResult{}, fmt.Errorf("parse table id: %w", err)
	}
	res.Discarded = int(discarded)
	res.Moves = int(moves)
	res.StartedAt = time.UnixMilli(started).UTC()
	res.EndedAt = time.UnixMilli(ended).UTC()
	return res, nil
}
