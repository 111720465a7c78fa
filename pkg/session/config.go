package session

import "time"

// DefaultMaxAge is applied when no max age is configured.
const DefaultMaxAge = 14 * 24 * time.Hour

// Config holds session configuration
type Config struct {
	// CookieName is the name of the identifier cookie (default: "sid")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// MaxAge accepts Go durations or human strings such as "14 days"
	MaxAge string `env:"SESSION_MAX_AGE" envDefault:"14 days"`

	// SecureCookies enables the Secure flag on session cookies (recommended for production)
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		CookieName:    "sid",
		MaxAge:        "14 days",
		SecureCookies: false,
	}
}

// NewFromConfig creates a new Manager from the provided Config.
// Returns ErrInvalidMaxAge when MaxAge cannot be parsed. Store and cookie
// manager must be supplied through options.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	maxAge := DefaultMaxAge
	if cfg.MaxAge != "" {
		d, err := ParseMaxAge(cfg.MaxAge)
		if err != nil {
			return nil, err
		}
		maxAge = d
	}

	configOpts := []Option{
		WithCookieName(cfg.CookieName),
		WithMaxAge(maxAge),
		WithSecureCookies(cfg.SecureCookies),
	}
	configOpts = append(configOpts, opts...)

	return New(configOpts...), nil
}
