package types

import "errors"

var (
	// ErrTokenRequired indicates an empty token string was supplied.
	ErrTokenRequired = errors.New("go-invites: token required")
	// ErrTokenMalformed indicates the token does not have the compact JWS shape.
	ErrTokenMalformed = errors.New("go-invites: token malformed")
	// ErrSignatureInvalid covers tampering, wrong-key, and wrong-algorithm cases.
	ErrSignatureInvalid = errors.New("go-invites: token signature invalid")
	// ErrTokenExpired indicates the token or record validity window has passed.
	ErrTokenExpired = errors.New("go-invites: token expired")
	// ErrClaimsIncomplete indicates required claims are missing or mistyped.
	ErrClaimsIncomplete = errors.New("go-invites: token claims incomplete")
	// ErrAlreadyConsumed indicates the invitation reached its consumed state.
	ErrAlreadyConsumed = errors.New("go-invites: invitation already consumed")
	// ErrRevoked indicates an administrator revoked the invitation.
	ErrRevoked = errors.New("go-invites: invitation revoked")
	// ErrRateLimited indicates the validation attempt limit was reached.
	ErrRateLimited = errors.New("go-invites: validation attempts exceeded")

	// ErrRecordNotFound indicates no invitation record matches the lookup.
	ErrRecordNotFound = errors.New("go-invites: invitation record not found")
	// ErrRecordConflict indicates a conditional update matched no row.
	ErrRecordConflict = errors.New("go-invites: invitation record conflict")
	// ErrTransitionNotAllowed reports that the target state is not reachable
	// from the current state.
	ErrTransitionNotAllowed = errors.New("go-invites: state transition not allowed")

	// ErrMissingSigner occurs when no token signer is configured.
	ErrMissingSigner = errors.New("go-invites: missing token signer")
	// ErrMissingRecordStore occurs when record persistence is unavailable.
	ErrMissingRecordStore = errors.New("go-invites: missing record store")
	// ErrMissingSigningKey occurs when key material is absent at construction.
	// Treat as a startup-time fatal, not a per-call error.
	ErrMissingSigningKey = errors.New("go-invites: missing signing key material")
	// ErrServiceNotReady occurs when the service facade lacks required
	// dependencies.
	ErrServiceNotReady = errors.New("go-invites: service not ready")
	// ErrMissingActivityRepository occurs when an activity query has no
	// backing repository.
	ErrMissingActivityRepository = errors.New("go-invites: missing activity repository")
	// ErrMissingInventoryRepository occurs when the inventory query has no
	// backing repository.
	ErrMissingInventoryRepository = errors.New("go-invites: missing inventory repository")
)
