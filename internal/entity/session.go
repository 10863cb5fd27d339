package entity

import "time"

// Session is the server-side half of a browser session: the API bearer token
// and the last known user record, keyed by the id stored in the cookie.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token,omitempty"`
	User      *User     `json:"user,omitempty"`
	Theme     string    `json:"theme,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// RefreshedAt is when User was last read from the API.
	RefreshedAt time.Time `json:"refreshed_at,omitzero"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}
