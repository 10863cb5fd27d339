package auth

import (
	"context"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"
)

// Viewer is who is looking at the page: the session behind the request and,
// when logged in, the API token and cached user record.
type Viewer struct {
	SessionID string
	Token     string
	User      *entity.User
	LoggedIn  bool
	Theme     string
}

func (v Viewer) IsAdmin() bool {
	return v.LoggedIn && v.User != nil && v.User.IsAdmin()
}

// UserID returns 0 for anonymous viewers.
func (v Viewer) UserID() entity.ID {
	if v.User == nil {
		return 0
	}
	return v.User.ID
}

// APIContext attaches the viewer's bearer token to ctx for API calls.
func (v Viewer) APIContext(ctx context.Context) context.Context {
	if v.Token == "" {
		return ctx
	}
	return bookstore.WithToken(ctx, v.Token)
}

func viewerFromSession(s entity.Session) Viewer {
	v := Viewer{SessionID: s.ID, Theme: s.Theme}
	if s.Authenticated() {
		v.Token = s.Token
		v.User = s.User
		v.LoggedIn = true
	}
	return v
}

type viewerKey struct{}

func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the viewer stored by Middleware, or an anonymous one.
func ViewerFrom(ctx context.Context) Viewer {
	if v, ok := ctx.Value(viewerKey{}).(Viewer); ok {
		return v
	}
	return Viewer{}
}
