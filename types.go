package driveauth

import (
	"github.com/ritasahaa/driveauth/role"
)

// UserProfile is the server-sourced identity adopted after a successful
// login or whoami call. The client treats it as a read-only cache that is
// invalidated on logout or expiration; it is never written back.
type UserProfile struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	// Role-specific display fields. Owners list under a business name;
	// renters carry a contact number for booking confirmations.
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

// Outcome classifies one validator run.
type Outcome uint8

const (
	// OutcomeNoSession means no token is stored in this tab.
	OutcomeNoSession Outcome = iota
	// OutcomeInvalid is the normalized negative: undecodable token, backend
	// rejection, malformed response, or network failure.
	OutcomeInvalid
	// OutcomeExpiredByInactivity means the tab sat idle past the inactivity
	// threshold. Never produced for exempt roles.
	OutcomeExpiredByInactivity
	// OutcomeExpiredByToken means the token's exp claim is in the past.
	// Never produced for exempt roles, which fail open to the backend.
	OutcomeExpiredByToken
	// OutcomeValid means the backend confirmed the session and returned a
	// profile.
	OutcomeValid
	// OutcomeAborted means the run's context was cancelled before the
	// backend answered. Nothing was decided and the store was not touched;
	// the next run classifies the session.
	OutcomeAborted
)

// String returns the event-log spelling of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoSession:
		return "no_session"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeExpiredByInactivity:
		return "expired_inactivity"
	case OutcomeExpiredByToken:
		return "expired_token"
	case OutcomeValid:
		return "valid"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// ValidationResult is the validator's classification of the stored session.
type ValidationResult struct {
	Outcome Outcome
	// Profile is set only for OutcomeValid.
	Profile *UserProfile
	// Role is the decoded token role, when the token decoded at all.
	Role    role.Role
	HasRole bool
}

// Phase is the manager's position in the session state machine.
type Phase uint8

const (
	// PhaseUninitialized is the state before Initialize.
	PhaseUninitialized Phase = iota
	// PhaseLoading covers the window where a stored token is being validated
	// and the reactive state has not settled.
	PhaseLoading
	// PhaseAuthenticated means a profile was adopted and timers are running.
	PhaseAuthenticated
	// PhaseUnauthenticated is the terminal state of any expiry, logout, or
	// validation failure.
	PhaseUnauthenticated
)

// String returns the event-log spelling of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Snapshot is the clean view of session state that guards and the hosting
// application consume. Errors never propagate this far; a failed validation
// is visible only as an unauthenticated snapshot.
type Snapshot struct {
	Phase           Phase
	User            *UserProfile
	Role            role.Role
	HasRole         bool
	IsAuthenticated bool
	Loading         bool
}

// Decision is the outcome of a route guard or of Initialize: allow the
// navigation, or redirect to Path.
type Decision struct {
	Allowed bool
	Path    string
}

// Allow is the decision that lets navigation proceed.
func Allow() Decision {
	return Decision{Allowed: true}
}

// RedirectTo is the decision that sends the caller to path.
func RedirectTo(path string) Decision {
	return Decision{Path: path}
}
