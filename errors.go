package driveauth

import "errors"

var (
	// ErrManagerNotReady is returned when a Manager method is called on a nil
	// or unbuilt manager.
	ErrManagerNotReady = errors.New("manager not ready")
	// ErrManagerClosed is returned after Close; a closed manager never
	// restarts timers or accepts logins.
	ErrManagerClosed = errors.New("manager closed")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("manager already initialized")
	// ErrBuilderReused is returned when Build is called twice on one Builder.
	ErrBuilderReused = errors.New("builder already consumed")
	// ErrAPIClientMissing is returned by Build when neither an API client nor
	// a base URL was configured.
	ErrAPIClientMissing = errors.New("api client not configured")

	// ErrInvalidCredentials is returned when the login endpoint rejects the
	// email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginUnavailable is returned when the login endpoint cannot be
	// reached or answers outside its contract.
	ErrLoginUnavailable = errors.New("login backend unavailable")
	// ErrLoginInvalid is returned when the login endpoint answers 2xx but the
	// body is not a usable login result.
	ErrLoginInvalid = errors.New("invalid login response")

	// ErrMalformedToken is returned when an adopted token fails the
	// structural decode check.
	ErrMalformedToken = errors.New("malformed bearer token")
	// ErrIdentityRejected is returned when the identity endpoint explicitly
	// rejects the session.
	ErrIdentityRejected = errors.New("identity rejected")
	// ErrIdentityUnavailable is returned when the identity endpoint cannot be
	// reached in time.
	ErrIdentityUnavailable = errors.New("identity backend unavailable")
)
