package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the store has no document for the identifier
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrInvalidID indicates the identifier is not a 24 character hex string
	ErrInvalidID = errors.New("session.invalid_id")

	// ErrNoStore indicates no store is configured
	ErrNoStore = errors.New("session.no_store")

	// ErrNoCookieManager indicates no cookie manager is configured
	ErrNoCookieManager = errors.New("session.no_cookie_manager")

	// ErrNoRequestState indicates the context was not prepared by Middleware or Attach
	ErrNoRequestState = errors.New("session.no_request_state")

	// ErrNotPersisted indicates a command was issued on a record that was never stored
	ErrNotPersisted = errors.New("session.not_persisted")

	// ErrSessionDestroyed indicates a command was issued on a destroyed record
	ErrSessionDestroyed = errors.New("session.destroyed")

	// ErrCSRFMismatch indicates the CSRF token does not belong to the session secret
	ErrCSRFMismatch = errors.New("session.csrf_mismatch")

	// ErrDuplicateID indicates Insert found a live document with the same identifier
	ErrDuplicateID = errors.New("session.duplicate_id")

	// ErrOperatorTarget indicates an operator was applied to a value of the wrong type
	ErrOperatorTarget = errors.New("session.operator_target")
)

// ErrValidation is the parent of every error returned before any store call is made.
var ErrValidation = errors.New("session.validation")

var (
	ErrReservedKey      = validationError("session.reserved_key")
	ErrNestedKey        = validationError("session.nested_key")
	ErrInvalidKey       = validationError("session.invalid_key")
	ErrInvalidMaxAge    = validationError("session.invalid_max_age")
	ErrInvalidExpires   = validationError("session.invalid_expires")
	ErrInvalidOperation = validationError("session.invalid_operation")
)

// validationError builds a sentinel that matches both itself and ErrValidation.
func validationError(text string) error {
	return fmt.Errorf("%w: %s", ErrValidation, text)
}
