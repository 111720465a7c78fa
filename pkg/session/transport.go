package session

import "github.com/dmitrymomot/atomicsession/pkg/cookie"

// CookieJar reads and writes the identifier cookie for one request.
// cookie.Jar is the standard implementation.
type CookieJar interface {
	// Get returns the cookie value, verified when cookie.WithSigned is passed
	Get(name string, opts ...cookie.Option) (string, bool)

	// Set writes the cookie to the response
	Set(name, value string, opts ...cookie.Option)
}
