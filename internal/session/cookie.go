package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie carrying the session id.
const CookieName = "bookworm_session"

// CookiePolicy controls the Secure flag and lifetime of the session cookie.
type CookiePolicy struct {
	// ForceSecure marks the cookie Secure even when the request arrived over
	// plain HTTP (TLS terminated by a proxy).
	ForceSecure bool
	MaxAge      time.Duration
}

func (p CookiePolicy) secure(r *http.Request) bool {
	if p.ForceSecure {
		return true
	}
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

// ReadCookie returns the trimmed session id when present.
func ReadCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// WriteCookie sets the session cookie.
func WriteCookie(w http.ResponseWriter, r *http.Request, sessionID string, policy CookiePolicy) {
	if w == nil {
		return
	}
	c := &http.Cookie{
		Name:     CookieName,
		Value:    strings.TrimSpace(sessionID),
		Path:     "/",
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: http.SameSiteLaxMode,
	}
	if policy.MaxAge > 0 {
		c.MaxAge = int(policy.MaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request, policy CookiePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
