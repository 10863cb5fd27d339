package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"bookworm/internal/httpx"
	"bookworm/internal/session"
)

// Middleware resolves the session cookie into a Viewer on the request context.
// Store failures degrade to an anonymous viewer rather than failing the page.
func (s *Service) Middleware(policy session.CookiePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var v Viewer
			if id, ok := session.ReadCookie(r); ok {
				loaded, err := s.Load(r.Context(), id)
				switch {
				case err == nil:
					v = loaded
				case errors.Is(err, ErrNoSession):
					session.ClearCookie(w, r, policy)
				default:
					slog.Error("failed to load session",
						slog.String("op", "auth.Middleware"),
						slog.String("request_id", httpx.RequestIDFrom(r)),
						slog.String("err", err.Error()),
					)
				}
			}

			ctx := WithViewer(r.Context(), v)
			if v.User != nil {
				ctx = httpx.ContextWithUser(ctx, v.User.ID.String(), v.User.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin sends anonymous viewers to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ViewerFrom(r.Context()).LoggedIn {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets admins through, redirects anonymous viewers to the login
// page and hands everyone else to forbidden.
func RequireAdmin(forbidden http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := ViewerFrom(r.Context())
			switch {
			case !v.LoggedIn:
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			case !v.IsAdmin():
				forbidden.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
