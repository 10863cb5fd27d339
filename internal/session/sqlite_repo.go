package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bookworm/internal/entity"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS web_sessions (
	id          TEXT PRIMARY KEY,
	token       TEXT NOT NULL DEFAULT '',
	user_record TEXT,
	theme       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL,
	refreshed_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS web_sessions_expires_at_idx ON web_sessions (expires_at);
`

// SQLiteRepo keeps sessions in a local SQLite file. Suitable for a single
// web node; use Postgres or Redis when running several.
type SQLiteRepo struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	if err := addRefreshedAt(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upgrade sqlite schema: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// addRefreshedAt upgrades files created before sessions tracked refreshes.
func addRefreshedAt(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('web_sessions') WHERE name = 'refreshed_at'`).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(`ALTER TABLE web_sessions ADD COLUMN refreshed_at INTEGER NOT NULL DEFAULT 0`)
	return err
}

func (r *SQLiteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (entity.Session, error) {
	const query = `
	SELECT id, token, user_record, theme, created_at, expires_at, refreshed_at
	FROM web_sessions
	WHERE id = ? AND expires_at > ?
	`
	var (
		s                                 entity.Session
		userRaw                           sql.NullString
		createdAt, expiresAt, refreshedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, id, toMillis(time.Now())).Scan(
		&s.ID, &s.Token, &userRaw, &s.Theme, &createdAt, &expiresAt, &refreshedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Session{}, ErrNotFound
		}
		return entity.Session{}, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.ExpiresAt = fromMillis(expiresAt)
	if refreshedAt > 0 {
		s.RefreshedAt = fromMillis(refreshedAt)
	}
	if userRaw.Valid {
		if s.User, err = decodeUser([]byte(userRaw.String)); err != nil {
			return entity.Session{}, err
		}
	}
	return s, nil
}

func (r *SQLiteRepo) Save(ctx context.Context, s *entity.Session) error {
	const query = `
	INSERT INTO web_sessions (id, token, user_record, theme, created_at, expires_at, refreshed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		token = excluded.token,
		user_record = excluded.user_record,
		theme = excluded.theme,
		expires_at = excluded.expires_at,
		refreshed_at = excluded.refreshed_at
	`
	prepare(s)
	userRaw, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	var user sql.NullString
	if userRaw != nil {
		user = sql.NullString{String: string(userRaw), Valid: true}
	}
	var refreshed int64
	if !s.RefreshedAt.IsZero() {
		refreshed = toMillis(s.RefreshedAt)
	}
	_, err = r.db.ExecContext(ctx, query, s.ID, s.Token, user, s.Theme, toMillis(s.CreatedAt), toMillis(s.ExpiresAt), refreshed)
	return err
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE expires_at <= ?`, toMillis(time.Now()))
	return err
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
