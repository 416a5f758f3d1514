package transport

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// hasValidCredential checks the token client-side before dialing: it must
// parse as a JWT and must not be expired. The signature is the backend's
// problem; we only avoid opening channels that are guaranteed to be
// rejected.
func hasValidCredential(token string) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.After(time.Now())
}
