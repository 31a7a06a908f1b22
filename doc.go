// Package driveauth implements the client-side authentication and session
// lifecycle for the rental platform's user surfaces: token storage with
// per-tab isolation, advisory JWT inspection, inactivity tracking, a
// short-circuiting session validator, and role-based route guards.
//
// The package is the client counterpart of the backend auth API. It decides
// when a stored session is alive, expired, or must be revalidated; it never
// decides what a session is ALLOWED to do; that authority stays with the
// backend, which sees the opaque bearer token on every request.
//
// # Architecture boundaries
//
// driveauth is the public surface. It exposes [Manager], [Builder], [Config],
// the guard functions, and value types (Snapshot, ValidationResult, Event).
// Token payload reading lives in the token subpackage, the closed role set
// and its routing tables in role, and per-tab persistence plus the cross-tab
// logout signal in store.
//
// # What this package must NOT do
//
//   - Treat a client-side token decode as an authorization decision. The
//     decode is unverified and advisory; it picks endpoints and login pages,
//     nothing more.
//   - Share session state across tabs. Each [Manager] owns exactly one tab's
//     session; the only shared state is the write-only logout broadcast.
//   - Run two validations for one tab concurrently. A sweep firing while a
//     validation is in flight is dropped, never raced.
//
// # Session state machine
//
// Uninitialized → Loading → {Authenticated | Unauthenticated}. Authenticated
// drops to Unauthenticated on logout, on any non-Valid validator outcome, or
// on an inactivity-sweep trip. The only way back is a fresh login; there is
// no in-place role switch.
package driveauth
