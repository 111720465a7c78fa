package session

// TokenService creates the per-session secret and the CSRF tokens bound to it.
// csrf.Tokens is the default implementation.
type TokenService interface {
	// NewSecret returns fresh signing material for a new session
	NewSecret() (string, error)

	// Sign returns a token derived from secret
	Sign(secret string) (string, error)

	// Verify reports whether token was produced from secret
	Verify(secret, token string) bool
}

// CSRFToken returns a token bound to the session secret.
func (s *Session) CSRFToken() (string, error) {
	secret := s.Secret()
	if secret == "" {
		return "", ErrNotPersisted
	}
	return s.manager().tokens.Sign(secret)
}

// VerifyCSRF reports whether token was issued for this session. Deciding what
// a mismatch means for the response is up to the caller.
func (s *Session) VerifyCSRF(token string) bool {
	secret := s.Secret()
	if secret == "" || token == "" {
		return false
	}
	return s.manager().tokens.Verify(secret, token)
}
