package driveauth

import (
	"slices"

	"github.com/ritasahaa/driveauth/role"
	"github.com/ritasahaa/driveauth/token"
)

// GuardRole decides whether the current state may enter a section that
// requires one of the given roles.
//
// An admin variant among the required roles is privileged: a current admin
// of that variant is allowed immediately, without the generic authenticated
// check. Everyone else needs an authenticated session with a matching role.
// On failure the redirect target is the login path of the first required
// role.
func GuardRole(snap Snapshot, required []role.Role) Decision {
	for _, r := range required {
		if r.Admin() && snap.HasRole && snap.Role == r {
			return Allow()
		}
	}
	if snap.IsAuthenticated && snap.HasRole && slices.Contains(required, snap.Role) {
		return Allow()
	}
	if len(required) == 0 {
		return RedirectTo(role.User.LoginPath())
	}
	return RedirectTo(required[0].LoginPath())
}

// GuardAdminOnly protects admin-prefixed sections: allow only an
// authenticated admin.
//
// While the reactive state has not settled (Loading), admin status is
// re-derived from a freshly decoded stored token via loadToken, so a page
// reload does not flash-redirect an admin to the login page before the
// async validation lands. loadToken may be nil when no store is reachable.
func GuardAdminOnly(snap Snapshot, loadToken func() (string, bool)) Decision {
	if snap.IsAuthenticated && snap.HasRole && snap.Role.Admin() {
		return Allow()
	}
	if snap.Loading && loadToken != nil {
		if raw, ok := loadToken(); ok {
			if claims, err := token.Decode(raw); err == nil && claims.Role.Admin() {
				return Allow()
			}
		}
	}
	return RedirectTo(role.Admin.LoginPath())
}

// GuardPublicOnly protects login and landing pages from already
// authenticated visitors: they are sent to their role's home path.
func GuardPublicOnly(snap Snapshot) Decision {
	if snap.IsAuthenticated && snap.HasRole {
		return RedirectTo(snap.Role.HomePath())
	}
	return Allow()
}
