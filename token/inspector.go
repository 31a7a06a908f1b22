// Package token reads the advisory payload of a bearer token without
// verifying its signature.
//
// The backend is the authority on token validity; the client-side decode
// exists only so the session layer can pick the right identity endpoint and
// login page before a network round-trip. Decoded claims MUST NOT be used
// for authorization decisions with real consequences; they are UI routing
// hints. Any server-visible privilege still rides on the opaque token string
// sent in the Authorization header.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ritasahaa/driveauth/role"
)

var (
	// ErrMalformed is returned when the token is not a three-segment
	// dot-separated structure.
	ErrMalformed = errors.New("malformed token")
	// ErrPayload is returned when the middle segment cannot be base64-decoded
	// or its JSON cannot be parsed.
	ErrPayload = errors.New("unreadable token payload")
	// ErrMissingClaims is returned when the payload decodes but lacks a
	// usable role or exp claim.
	ErrMissingClaims = errors.New("token missing required claims")
)

// Claims is the advisory view of a bearer token payload.
type Claims struct {
	Role      role.Role
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is in the past at now.
func (c Claims) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within window of now.
// Already-expired tokens report false; callers handle those separately.
func (c Claims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.Expired(now) {
		return false
	}
	return c.ExpiresAt.Sub(now) <= window
}

// Decode splits raw on ".", requires exactly three segments, base64-decodes
// the middle segment, parses it as JSON, and extracts the role and exp
// claims. The signature segment is never verified.
//
// Every failure mode returns one of the package sentinels; callers treat all
// of them identically to "session invalid" and never retry the same token.
func Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if strings.Count(raw, ".") != 2 {
		return Claims{}, fmt.Errorf("%w: want 3 segments", ErrMalformed)
	}

	payload := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, payload); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrPayload, err)
	}

	roleClaim, ok := payload["role"].(string)
	if !ok || roleClaim == "" {
		return Claims{}, fmt.Errorf("%w: role", ErrMissingClaims)
	}
	r, err := role.Parse(roleClaim)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMissingClaims, err)
	}

	exp, err := payload.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: exp", ErrMissingClaims)
	}

	return Claims{Role: r, ExpiresAt: exp.Time}, nil
}
