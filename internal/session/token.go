package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether a JWT bearer token carries an exp claim at or
// before now. The signature is not checked; the API does that on every call.
// Tokens that are not JWTs, or carry no exp, are never expired here.
func TokenExpired(token string, now time.Time) bool {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
