// Package cookie writes and reads HTTP cookies with shared defaults and
// HMAC-SHA256 signing.
//
// A Manager is created once with one or more secrets of at least 32 bytes.
// The first secret signs, every secret verifies, so keys can be rotated by
// prepending a new one. Signed values have the form base64(value) "|" base64(mac).
//
// Manager.Jar binds the manager to a single request and response. The session
// package reads and writes its identifier cookie through a Jar:
//
//	jar := cookies.Jar(w, r)
//	id, ok := jar.Get("sid", cookie.WithSigned(true))
//	jar.Set("sid", id, cookie.WithSigned(true), cookie.WithOverwrite(true), cookie.WithMaxAge(3600))
//
// WithOverwrite removes Set-Cookie headers for the same name queued earlier in
// the response, so a handler that touches the session several times still
// sends one cookie. A negative max age deletes the cookie.
//
// Config can be filled from the environment (COOKIE_SECRETS is a comma
// separated list) and turned into a Manager with NewFromConfig.
//
// Errors: ErrNoSecret, ErrSecretTooShort, ErrCookieNotFound, ErrInvalidFormat
// and ErrInvalidSignature.
package cookie
