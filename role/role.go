// Package role defines the closed set of account roles the rental platform
// issues tokens for, together with the role-keyed routing tables the rest of
// driveauth consumes.
//
// Every role-to-endpoint and role-to-path mapping lives here as an exhaustive
// switch, so adding a role is a single-package, compile-visible change rather
// than a string comparison scattered across call sites.
package role

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies one of the account kinds known to the platform.
//
// The zero value is User. Roles are closed: values outside the declared
// constants are never produced by [Parse] and must not be constructed by
// callers.
type Role uint8

const (
	// User is a renter account (PG bookings, bike rentals).
	User Role = iota
	// Owner is a property or vehicle owner account.
	Owner
	// Admin is the platform operations account.
	Admin
	// SuperAdmin is the elevated admin variant some deployments issue.
	SuperAdmin

	roleCount
)

// ErrUnknownRole is returned by [Parse] for any string outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// Parse maps a token or profile role claim to a [Role]. Matching is
// case-insensitive and ignores surrounding whitespace.
func Parse(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return User, nil
	case "owner":
		return Owner, nil
	case "admin":
		return Admin, nil
	case "superadmin":
		return SuperAdmin, nil
	}
	return User, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// String returns the wire spelling of the role, as it appears in token
// payloads and profile documents.
func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	case SuperAdmin:
		return "superadmin"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared constants.
func (r Role) Valid() bool {
	return r < roleCount
}

// Admin reports whether r is one of the admin variants. Admin roles get the
// privileged guard bypass and, under the default policy, the inactivity
// exemption.
func (r Role) Admin() bool {
	return r == Admin || r == SuperAdmin
}

// WhoAmIPath returns the identity endpoint for the role. Admin variants use
// the admin-scoped endpoint; everyone else shares the generic one.
func (r Role) WhoAmIPath() string {
	switch r {
	case Admin, SuperAdmin:
		return "/api/admin/me"
	case User, Owner:
		return "/api/auth/me"
	}
	return "/api/auth/me"
}

// LoginPath returns the login page for the role. Guards redirect here when a
// section requires the role and the caller is not authenticated for it.
func (r Role) LoginPath() string {
	switch r {
	case Owner:
		return "/owner/login"
	case Admin, SuperAdmin:
		return "/admin/login"
	case User:
		return "/login"
	}
	return "/login"
}

// HomePath returns the post-login landing page for the role. Used by the
// public-only guard to bounce already-authenticated visitors.
func (r Role) HomePath() string {
	switch r {
	case Owner:
		return "/owner/dashboard"
	case Admin, SuperAdmin:
		return "/admin/dashboard"
	case User:
		return "/"
	}
	return "/"
}
