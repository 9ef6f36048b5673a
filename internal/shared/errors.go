package shared

import "errors"

// Error kinds shared across domain services. Handlers map these onto
// transport status codes in platform/httpx.
var (
	// ErrUnauthenticated indicates no principal where one is required.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the principal lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a missing resource, or one hidden by the
	// tutorial visibility rule.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed or out-of-range payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a uniqueness invariant was violated.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
