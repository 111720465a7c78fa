package cookie

import "errors"

var (
	// ErrNoSecret is returned by New when no signing secret is configured.
	ErrNoSecret       = errors.New("cookie.no_secret")
	ErrSecretTooShort = errors.New("cookie.secret_too_short")
	// ErrInvalidSignature means no configured secret produced the signature.
	ErrInvalidSignature = errors.New("cookie.invalid_signature")
	ErrCookieNotFound   = errors.New("cookie.not_found")
	// ErrInvalidFormat covers signed values without a separator and bad config values.
	ErrInvalidFormat = errors.New("cookie.invalid_format")
)
