package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookworm/internal/entity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo stores sessions in the web_sessions table (db/migrations).
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (entity.Session, error) {
	const query = `
	SELECT id, token, user_record, theme, created_at, expires_at, refreshed_at
	FROM web_sessions
	WHERE id = $1 AND expires_at > now()
	LIMIT 1
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		s           entity.Session
		userRaw     []byte
		refreshedAt *time.Time
	)
	err := r.db.QueryRow(timeoutCtx, query, id).Scan(
		&s.ID,
		&s.Token,
		&userRaw,
		&s.Theme,
		&s.CreatedAt,
		&s.ExpiresAt,
		&refreshedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Session{}, ErrNotFound
		}
		return entity.Session{}, err
	}
	if refreshedAt != nil {
		s.RefreshedAt = *refreshedAt
	}
	if s.User, err = decodeUser(userRaw); err != nil {
		return entity.Session{}, err
	}
	return s, nil
}

func (r *PostgresRepo) Save(ctx context.Context, s *entity.Session) error {
	const query = `
	INSERT INTO web_sessions (id, token, user_record, theme, created_at, expires_at, refreshed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		token = EXCLUDED.token,
		user_record = EXCLUDED.user_record,
		theme = EXCLUDED.theme,
		expires_at = EXCLUDED.expires_at,
		refreshed_at = EXCLUDED.refreshed_at
	`
	prepare(s)
	userRaw, err := encodeUser(s.User)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var refreshedAt *time.Time
	if !s.RefreshedAt.IsZero() {
		refreshedAt = &s.RefreshedAt
	}
	_, err = r.db.Exec(timeoutCtx, query, s.ID, s.Token, userRaw, s.Theme, s.CreatedAt, s.ExpiresAt, refreshedAt)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM web_sessions WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, id)
	return err
}

func (r *PostgresRepo) DeleteExpired(ctx context.Context) error {
	const query = `DELETE FROM web_sessions WHERE expires_at < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query)
	return err
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

// prepare fills the id and timestamps of a session that has never been saved.
func prepare(s *entity.Session) {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

func encodeUser(u *entity.User) ([]byte, error) {
	if u == nil {
		return nil, nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode session user: %w", err)
	}
	return b, nil
}

func decodeUser(raw []byte) (*entity.User, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var u entity.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &u, nil
}
