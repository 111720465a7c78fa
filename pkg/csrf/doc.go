// Package csrf issues and verifies CSRF tokens bound to a per-session secret.
//
// A secret is created once per session with NewSecret and stored with it.
// Sign derives a key from the secret with HKDF-SHA256 and returns
// "salt.mac", where mac is HMAC-SHA256 of a fresh random salt. Verify
// recomputes the mac and compares in constant time, so any number of tokens
// issued for the same session stay valid until the secret changes.
//
//	tokens := csrf.New()
//	secret, _ := tokens.NewSecret()
//	tok, _ := tokens.Sign(secret)
//	ok := tokens.Verify(secret, tok) // true
package csrf
