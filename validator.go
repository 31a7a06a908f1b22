package driveauth

import (
	"context"
	"time"

	"github.com/ritasahaa/driveauth/store"
	"github.com/ritasahaa/driveauth/token"
)

// sessionValidator is the decision core. One run classifies the stored
// session with at most one network call, and only when every local check has
// already passed.
type sessionValidator struct {
	tab *store.TabStore
	api APIClient
	cfg Config
}

// validate classifies the tab's stored session. Ordered, short-circuiting:
//
//  1. no stored token → NoSession
//  2. undecodable token → Invalid, store cleared
//  3. non-exempt role idle past the inactivity threshold →
//     ExpiredByInactivity, store cleared
//  4. exp in the past → ExpiredByToken and store cleared for non-exempt
//     roles; exempt roles fail open and proceed (the backend will reject or
//     renew on its own terms)
//  5. exp within the renewal window → best-effort refresh when the API
//     client supports it; failure is ignored
//  6. one role-keyed whoami call → Valid with a fresh activity stamp and
//     cached role, or Invalid with the store cleared
//
// Steps 1–4 are purely local. Step 6's transport errors are normalized to
// Invalid, with one exception: a run whose context was cancelled returns
// Aborted and leaves the store alone, since the backend never answered. No
// error escapes to the caller. Calling validate twice against the same
// store state yields the same classification.
func (v *sessionValidator) validate(ctx context.Context) ValidationResult {
	raw, ok := v.tab.LoadToken()
	if !ok {
		return ValidationResult{Outcome: OutcomeNoSession}
	}

	claims, err := token.Decode(raw)
	if err != nil {
		v.tab.Clear()
		return ValidationResult{Outcome: OutcomeInvalid}
	}

	exempt := v.cfg.Policy.Exempt(claims.Role)
	now := time.Now()

	if !exempt {
		if last, ok := v.tab.ReadActivity(); ok && now.Sub(last) > v.cfg.Thresholds.Inactivity {
			v.expireLocally(claims)
			return ValidationResult{Outcome: OutcomeExpiredByInactivity, Role: claims.Role, HasRole: true}
		}
		if claims.Expired(now) {
			v.expireLocally(claims)
			return ValidationResult{Outcome: OutcomeExpiredByToken, Role: claims.Role, HasRole: true}
		}
	}

	if claims.ExpiresWithin(now, v.cfg.Thresholds.RenewalWindow) {
		raw = v.tryRefresh(ctx, raw)
	}

	profile, err := v.api.WhoAmI(ctx, claims.Role, raw)
	if err != nil || profile == nil {
		if ctx.Err() != nil {
			// Cancelled, not rejected. The session is still undecided, so
			// the stored token must survive for the next run.
			return ValidationResult{Outcome: OutcomeAborted, Role: claims.Role, HasRole: true}
		}
		v.tab.Clear()
		return ValidationResult{Outcome: OutcomeInvalid, Role: claims.Role, HasRole: true}
	}

	v.tab.TouchActivity(time.Now())
	v.tab.SaveRoleHint(claims.Role)
	return ValidationResult{Outcome: OutcomeValid, Profile: profile, Role: claims.Role, HasRole: true}
}

// expireLocally clears the credentials but records the role hint first, so
// the session-expired page can offer the right login.
func (v *sessionValidator) expireLocally(claims token.Claims) {
	v.tab.SaveRoleHint(claims.Role)
	v.tab.Clear()
}

// tryRefresh exchanges a near-expiry token when the API client exposes a
// refresh endpoint. Absence of the endpoint, a transport failure, or a
// structurally bad replacement all leave the current token in place.
func (v *sessionValidator) tryRefresh(ctx context.Context, raw string) string {
	refresher, ok := v.api.(TokenRefresher)
	if !ok {
		return raw
	}
	fresh, err := refresher.Refresh(ctx, raw)
	if err != nil || fresh == "" {
		return raw
	}
	if _, err := token.Decode(fresh); err != nil {
		return raw
	}
	v.tab.SaveToken(fresh)
	return fresh
}
