package grant

import (
	"context"
	"database/sql"
	"fmt"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// Schema creates the grant tables. Applied by deployment tooling and the
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS whitelist_entries (
    identity   TEXT PRIMARY KEY,
    added_at   TIMESTAMPTZ NOT NULL,
    added_by   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS temporal_grants (
    id             UUID PRIMARY KEY,
    identity       TEXT NOT NULL,
    granted_at     TIMESTAMPTZ NOT NULL,
    expires_at     TIMESTAMPTZ NOT NULL,
    granted_by     TEXT NOT NULL,
    duration_hours INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_temporal_grants_identity ON temporal_grants (identity);
CREATE INDEX IF NOT EXISTS idx_temporal_grants_expires ON temporal_grants (expires_at);
`

// PostgresStore persists whitelist entries and temporal grants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed grant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IsWhitelisted(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM whitelist_entries WHERE identity = $1)`, identity,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check whitelist: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddWhitelist(ctx context.Context, entry models.WhitelistEntry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO whitelist_entries (identity, added_at, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity) DO NOTHING`,
		entry.Identity, entry.AddedAt, entry.AddedBy,
	)
	if err != nil {
		return fmt.Errorf("add whitelist entry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add whitelist entry: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListWhitelist(ctx context.Context) ([]models.WhitelistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity, added_at, added_by FROM whitelist_entries ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()

	var entries []models.WhitelistEntry
	for rows.Next() {
		var e models.WhitelistEntry
		if err := rows.Scan(&e.Identity, &e.AddedAt, &e.AddedBy); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) HasActiveGrant(ctx context.Context, identity string) (bool, error) {
	now := requestcontext.Now(ctx)
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM temporal_grants WHERE identity = $1 AND expires_at > $2)`,
		identity, now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active grant: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddGrant(ctx context.Context, g models.TemporalGrant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO temporal_grants (id, identity, granted_at, expires_at, granted_by, duration_hours)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Identity, g.GrantedAt, g.ExpiresAt, g.GrantedBy, g.DurationHours,
	)
	if err != nil {
		return fmt.Errorf("add grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error) {
	now := requestcontext.Now(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity, granted_at, expires_at, granted_by, duration_hours
		FROM temporal_grants
		WHERE expires_at > $1
		ORDER BY expires_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list active grants: %w", err)
	}
	defer rows.Close()

	var grants []models.TemporalGrant
	for rows.Next() {
		var g models.TemporalGrant
		if err := rows.Scan(&g.ID, &g.Identity, &g.GrantedAt, &g.ExpiresAt, &g.GrantedBy, &g.DurationHours); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *PostgresStore) RemoveIdentity(ctx context.Context, identity string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove identity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM whitelist_entries WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("remove whitelist entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM temporal_grants WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("remove grants: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) SweepExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	res, err := s.db.ExecContext(ctx, `DELETE FROM temporal_grants WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep grants: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep grants: %w", err)
	}
	return int(rows), nil
}
