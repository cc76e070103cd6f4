package session

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
)

// PostgresIndex is an Index backed by a Postgres table, for deployments
// running more than one orchestra instance against a shared session root
// (e.g. the watch-mode dashboard and the CLI polling from different
// hosts) that want a query surface richer than a directory scan.
type PostgresIndex struct {
	db *sqlx.DB
}

// NewPostgresIndex opens dsn via pgx's database/sql driver and ensures the
// index table exists.
func NewPostgresIndex(dsn string) (*PostgresIndex, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: connect postgres index: %w", err)
	}
	idx := &PostgresIndex{db: db}
	if err := idx.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PostgresIndex) ensureSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS orchestra_session_index (
			id            TEXT PRIMARY KEY,
			task          TEXT NOT NULL,
			phase         TEXT NOT NULL,
			iteration     INT  NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("session: ensure index schema: %w", err)
	}
	return nil
}

// Upsert inserts or updates s's row, keyed by ID.
func (p *PostgresIndex) Upsert(ctx context.Context, s SessionSummary) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO orchestra_session_index (id, task, phase, iteration, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			task          = EXCLUDED.task,
			phase         = EXCLUDED.phase,
			iteration     = EXCLUDED.iteration,
			last_activity = EXCLUDED.last_activity
	`, s.ID, string(s.Task), string(s.Phase), s.Iteration, s.CreatedAt, s.LastActivity)
	if err != nil {
		return fmt.Errorf("session: upsert index row: %w", err)
	}
	return nil
}

// Delete removes id's row, if present.
func (p *PostgresIndex) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM orchestra_session_index WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session: delete index row: %w", err)
	}
	return nil
}

// List mirrors Store.List's filter semantics against the index table,
// for callers that want a single SQL round-trip instead of a directory walk.
func (p *PostgresIndex) List(ctx context.Context, filter ListFilter) ([]SessionSummary, error) {
	query := `SELECT id, task, phase, iteration, created_at, last_activity
	          FROM orchestra_session_index`
	args := []interface{}{}
	if filter.Status != "" {
		query += ` WHERE phase = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY last_activity DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []SessionSummary
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("session: query index: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

var _ Index = (*PostgresIndex)(nil)
