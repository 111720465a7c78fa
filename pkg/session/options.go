package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithStore sets the session store
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithCookieManager sets the cookie manager used to build per-request jars
func WithCookieManager(cookieMgr *cookie.Manager, opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookieManager = cookieMgr
		m.cookieOptions = opts
	}
}

// WithCookieName sets the identifier cookie name
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithMaxAge sets the default idle lifetime of new sessions
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithSecureCookies sets the Secure flag on the identifier cookie
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secureCookies = secure
	}
}

// WithTokenService replaces the CSRF token service
func WithTokenService(tokens TokenService) Option {
	return func(m *Manager) {
		if tokens != nil {
			m.tokens = tokens
		}
	}
}

// WithLogger sets the logger for lifecycle events
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
