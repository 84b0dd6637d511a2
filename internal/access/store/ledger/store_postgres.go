package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// Schema creates the request ledger table. The partial unique index is what
// enforces the one-open-request-per-identity rule under concurrency.
const Schema = `
CREATE TABLE IF NOT EXISTS access_requests (
    request_id       TEXT PRIMARY KEY,
    identity         TEXT NOT NULL,
    verified_user_id TEXT NOT NULL DEFAULT '',
    avatar_url       TEXT NOT NULL DEFAULT '',
    asserted_token   TEXT NOT NULL DEFAULT '',
    verified         BOOLEAN NOT NULL DEFAULT FALSE,
    requested_at     TIMESTAMPTZ NOT NULL,
    source_address   TEXT NOT NULL DEFAULT '',
    user_agent       TEXT NOT NULL DEFAULT '',
    client_name      TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    approved_at      TIMESTAMPTZ,
    denied_at        TIMESTAMPTZ,
    denial_reason    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_access_requests_open
    ON access_requests (identity) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_access_requests_identity ON access_requests (identity);
CREATE INDEX IF NOT EXISTS idx_access_requests_status ON access_requests (status);
`

const uniqueViolation = "23505"

const requestColumns = `request_id, identity, verified_user_id, avatar_url, asserted_token,
	verified, requested_at, source_address, user_agent, client_name,
	status, approved_at, denied_at, denial_reason`

// PostgresStore persists access requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed request ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanRequest(row interface{ Scan(...any) error }) (*models.PendingRequest, error) {
	var (
		req        models.PendingRequest
		status     string
		approvedAt sql.NullTime
		deniedAt   sql.NullTime
	)
	err := row.Scan(
		&req.RequestID, &req.Identity, &req.VerifiedUserID, &req.AvatarURL, &req.AssertedToken,
		&req.Verified, &req.RequestedAt, &req.SourceAddress, &req.UserAgent, &req.ClientName,
		&status, &approvedAt, &deniedAt, &req.DenialReason,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := models.ParseRequestStatus(status)
	if err != nil {
		return nil, err
	}
	req.Status = parsed
	if approvedAt.Valid {
		t := approvedAt.Time
		req.ApprovedAt = &t
	}
	if deniedAt.Valid {
		t := deniedAt.Time
		req.DeniedAt = &t
	}
	return &req, nil
}

func (s *PostgresStore) FindPendingByIdentity(ctx context.Context, identity string) (*models.PendingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE identity = $1 AND status = 'pending'`,
		identity,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) CreatePending(ctx context.Context, req *models.PendingRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_requests (request_id, identity, verified_user_id, avatar_url,
			asserted_token, verified, requested_at, source_address, user_agent,
			client_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.RequestID, req.Identity, req.VerifiedUserID, req.AvatarURL,
		req.AssertedToken, req.Verified, req.RequestedAt, req.SourceAddress, req.UserAgent,
		req.ClientName, string(req.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create pending request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID string) (*models.PendingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE request_id = $1`,
		requestID,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Transition(ctx context.Context, requestID string, next models.RequestStatus, reason string) (*models.PendingRequest, error) {
	now := requestcontext.Now(ctx)

	var (
		approvedAt *time.Time
		deniedAt   *time.Time
	)
	if next == models.StatusDenied {
		deniedAt = &now
	} else {
		approvedAt = &now
		reason = ""
	}

	// The WHERE status = 'pending' guard makes the transition a compare and
	// swap; a raced terminal request updates zero rows.
	row := s.db.QueryRowContext(ctx, `
		UPDATE access_requests
		SET status = $2, approved_at = $3, denied_at = $4, denial_reason = $5
		WHERE request_id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		requestID, string(next), approvedAt, deniedAt, reason,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing request from one already decided.
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM access_requests WHERE request_id = $1)`, requestID,
		).Scan(&exists); checkErr != nil {
			return nil, fmt.Errorf("transition request: %w", checkErr)
		}
		if exists {
			return nil, sentinel.ErrInvalidState
		}
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transition request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, statuses ...models.RequestStatus) ([]*models.PendingRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests`
	args := []any{}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY requested_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PurgeByIdentity(ctx context.Context, identity string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_requests WHERE identity = $1`, identity)
	if err != nil {
		return 0, fmt.Errorf("purge requests: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge requests: %w", err)
	}
	return int(rows), nil
}
