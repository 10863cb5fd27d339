// Package auth keeps track of who is logged in. It owns the server-side
// session record that replaces the browser-stored token and user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"
	"bookworm/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// API is the part of the bookstore client auth depends on.
type API interface {
	Login(ctx context.Context, creds bookstore.Credentials) (bookstore.LoginResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (entity.User, error)
	CreateUser(ctx context.Context, in bookstore.UserInput) (entity.User, error)
}

// DefaultRefreshInterval is how long a cached user record is trusted before
// Load re-reads it from GET /auth/me.
const DefaultRefreshInterval = 5 * time.Minute

type Service struct {
	api          API
	store        session.Store
	ttl          time.Duration
	refreshEvery time.Duration
	now          func() time.Time
}

type Option func(*Service)

// WithRefreshInterval sets how often Load re-reads the user. Zero or less
// re-reads on every load.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		s.refreshEvery = max(d, 0)
	}
}

func NewService(api API, store session.Store, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	s := &Service{api: api, store: store, ttl: ttl, refreshEvery: DefaultRefreshInterval, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the lifetime given to new sessions.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login exchanges credentials for a token and starts a fresh session. The
// previous session, if any, is discarded; only its theme carries over.
func (s *Service) Login(ctx context.Context, prev Viewer, email, password string) (Viewer, error) {
	op := "auth.Login"
	res, err := s.api.Login(ctx, bookstore.Credentials{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, bookstore.ErrUnauthorized) {
			return Viewer{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, err)
		}
		return Viewer{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Token == "" {
		return Viewer{}, fmt.Errorf("%s: empty token in login response", op)
	}

	user := res.User
	sess := &entity.Session{
		Token:       res.Token,
		User:        &user,
		Theme:       prev.Theme,
		ExpiresAt:   s.now().Add(s.ttl),
		RefreshedAt: s.now(),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Viewer{}, fmt.Errorf("%s: save session: %w", op, err)
	}
	if prev.SessionID != "" {
		if err := s.store.Delete(ctx, prev.SessionID); err != nil {
			slog.Warn("failed to drop previous session", slog.String("op", op), slog.String("err", err.Error()))
		}
	}
	return viewerFromSession(*sess), nil
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Address              string
}

// Register creates a customer account and logs it in.
func (s *Service) Register(ctx context.Context, prev Viewer, in RegisterInput) (Viewer, error) {
	_, err := s.api.CreateUser(ctx, bookstore.UserInput{
		Name:                 strings.TrimSpace(in.Name),
		Email:                strings.TrimSpace(in.Email),
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
		Address:              strings.TrimSpace(in.Address),
		Role:                 entity.RoleCustomer,
	})
	if err != nil {
		return Viewer{}, fmt.Errorf("auth.Register: %w", err)
	}
	return s.Login(ctx, prev, in.Email, in.Password)
}

// Logout revokes the token with the API and deletes the session. An API
// failure is only logged; the local session goes away regardless.
func (s *Service) Logout(ctx context.Context, v Viewer) error {
	op := "auth.Logout"
	if v.Token != "" {
		if err := s.api.Logout(v.APIContext(ctx)); err != nil {
			slog.Warn("logout API call failed", slog.String("op", op), slog.String("err", err.Error()))
		}
	}
	if v.SessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, v.SessionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load returns the viewer for a session id. Unknown ids yield an anonymous
// viewer and ErrNoSession. Sessions whose JWT has expired are logged out
// without calling the API. A user record older than the refresh interval is
// re-read from the API.
func (s *Service) Load(ctx context.Context, sessionID string) (Viewer, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Viewer{}, ErrNoSession
		}
		return Viewer{}, fmt.Errorf("auth.Load: %w", err)
	}
	if sess.Authenticated() && session.TokenExpired(sess.Token, s.now()) {
		return s.forget(ctx, sess)
	}
	v := viewerFromSession(sess)
	if v.LoggedIn && (v.User == nil || s.stale(sess)) {
		return s.Refresh(ctx, v)
	}
	return v, nil
}

func (s *Service) stale(sess entity.Session) bool {
	return s.now().Sub(sess.RefreshedAt) >= s.refreshEvery
}

// Refresh re-reads the current user from the API. A 401 logs the viewer out.
// Other failures keep the stored user record; without one the viewer is
// logged out.
func (s *Service) Refresh(ctx context.Context, v Viewer) (Viewer, error) {
	op := "auth.Refresh"
	if v.Token == "" {
		v.LoggedIn = false
		v.User = nil
		return v, nil
	}
	if session.TokenExpired(v.Token, s.now()) {
		return s.logoutLocal(ctx, v)
	}

	user, err := s.api.CurrentUser(v.APIContext(ctx))
	if err != nil {
		slog.Warn("failed to get current user", slog.String("op", op), slog.String("err", err.Error()))
		if v.User != nil && !errors.Is(err, bookstore.ErrUnauthorized) {
			return v, nil
		}
		return s.logoutLocal(ctx, v)
	}
	return s.UpdateStoredUser(ctx, v, user)
}

// UpdateStoredUser replaces the cached user record, e.g. after a profile edit.
func (s *Service) UpdateStoredUser(ctx context.Context, v Viewer, user entity.User) (Viewer, error) {
	v.User = &user
	v.LoggedIn = v.Token != ""
	if v.SessionID == "" {
		return v, nil
	}
	now := s.now()
	err := s.update(ctx, v.SessionID, func(sess *entity.Session) {
		u := user
		sess.User = &u
		sess.RefreshedAt = now
	})
	if err != nil {
		return v, fmt.Errorf("auth.UpdateStoredUser: %w", err)
	}
	return v, nil
}

// SetTheme stores the colour theme, starting an anonymous session when the
// viewer has none yet.
func (s *Service) SetTheme(ctx context.Context, v Viewer, theme string) (Viewer, error) {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	v.Theme = theme
	if v.SessionID != "" {
		err := s.update(ctx, v.SessionID, func(sess *entity.Session) { sess.Theme = theme })
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return v, fmt.Errorf("auth.SetTheme: %w", err)
		}
	}
	sess := &entity.Session{Theme: theme, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Save(ctx, sess); err != nil {
		return v, fmt.Errorf("auth.SetTheme: %w", err)
	}
	return viewerFromSession(*sess), nil
}

// forget drops the credentials of a session but keeps it for the theme.
func (s *Service) forget(ctx context.Context, sess entity.Session) (Viewer, error) {
	sess.Token = ""
	sess.User = nil
	sess.RefreshedAt = time.Time{}
	if err := s.store.Save(ctx, &sess); err != nil {
		return Viewer{}, fmt.Errorf("auth.forget: %w", err)
	}
	return viewerFromSession(sess), nil
}

func (s *Service) logoutLocal(ctx context.Context, v Viewer) (Viewer, error) {
	if v.SessionID == "" {
		return Viewer{Theme: v.Theme}, nil
	}
	sess, err := s.store.Get(ctx, v.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Viewer{Theme: v.Theme}, nil
		}
		return Viewer{}, err
	}
	return s.forget(ctx, sess)
}

func (s *Service) update(ctx context.Context, id string, fn func(*entity.Session)) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(&sess)
	return s.store.Save(ctx, &sess)
}
