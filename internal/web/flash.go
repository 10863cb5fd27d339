package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"bookworm/internal/session"
)

const flashCookieName = "bookworm_flash"

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-time notice carried across a redirect.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

func writeFlash(w http.ResponseWriter, r *http.Request, policy session.CookiePolicy, f Flash) {
	f.Message = strings.TrimSpace(f.Message)
	if f.Message == "" {
		return
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   policy.ForceSecure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// readFlash returns the pending notice, if any, and clears it.
func readFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie == nil {
		return Flash{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := json.Unmarshal(decoded, &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	if f.Kind != FlashSuccess && f.Kind != FlashError {
		f.Kind = FlashSuccess
	}
	return f, true
}
