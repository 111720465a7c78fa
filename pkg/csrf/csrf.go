package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultSecretLength is the number of random bytes in a session secret
	DefaultSecretLength = 18
	// DefaultSaltLength is the number of random bytes in a token salt
	DefaultSaltLength = 8

	keyInfo = "csrf"
	keySize = 32
)

var encoding = base64.RawURLEncoding

// Tokens issues and verifies CSRF tokens bound to a per-session secret.
// The zero value is not usable; call New.
type Tokens struct {
	secretLength int
	saltLength   int
	rand         io.Reader
}

type Option func(*Tokens)

// WithSecretLength changes the number of random bytes in NewSecret
func WithSecretLength(n int) Option {
	return func(t *Tokens) {
		if n > 0 {
			t.secretLength = n
		}
	}
}

// WithSaltLength changes the number of random bytes in each token
func WithSaltLength(n int) Option {
	return func(t *Tokens) {
		if n > 0 {
			t.saltLength = n
		}
	}
}

// WithRandom replaces crypto/rand, for deterministic tests
func WithRandom(r io.Reader) Option {
	return func(t *Tokens) {
		if r != nil {
			t.rand = r
		}
	}
}

func New(opts ...Option) *Tokens {
	t := &Tokens{
		secretLength: DefaultSecretLength,
		saltLength:   DefaultSaltLength,
		rand:         rand.Reader,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewSecret returns base64url encoded random bytes.
func (t *Tokens) NewSecret() (string, error) {
	b := make([]byte, t.secretLength)
	if _, err := io.ReadFull(t.rand, b); err != nil {
		return "", err
	}
	return encoding.EncodeToString(b), nil
}

// Sign returns "salt.mac". Every call uses a new salt, so tokens for the same
// secret differ.
func (t *Tokens) Sign(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, t.saltLength)
	if _, err := io.ReadFull(t.rand, salt); err != nil {
		return "", err
	}

	mac, err := sign(secret, salt)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(salt) + "." + encoding.EncodeToString(mac), nil
}

// Verify reports whether token was produced by Sign for secret.
func (t *Tokens) Verify(secret, token string) bool {
	salt, mac, err := parse(token)
	if err != nil || secret == "" {
		return false
	}

	expected, err := sign(secret, salt)
	if err != nil {
		return false
	}
	return hmac.Equal(mac, expected)
}

func parse(token string) (salt, mac []byte, err error) {
	saltEnc, macEnc, ok := strings.Cut(token, ".")
	if !ok || saltEnc == "" || macEnc == "" {
		return nil, nil, ErrInvalidToken
	}
	if salt, err = encoding.DecodeString(saltEnc); err != nil {
		return nil, nil, ErrInvalidToken
	}
	if mac, err = encoding.DecodeString(macEnc); err != nil {
		return nil, nil, ErrInvalidToken
	}
	return salt, mac, nil
}

func sign(secret string, salt []byte) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	h := hmac.New(sha256.New, key)
	h.Write(salt)
	return h.Sum(nil), nil
}
