package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

const minSecretLength = 32

var unixEpoch = time.Unix(0, 0)

// Manager writes and reads cookies with shared defaults and signing secrets.
// The first secret signs; all of them are tried when verifying.
type Manager struct {
	secrets  []string
	defaults Options
}

func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
	}

	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		secrets:  secrets,
		defaults: applyOptions(defaults, opts),
	}, nil
}

// Set writes a cookie. With WithSigned the value is signed first.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	options := applyOptions(m.defaults, opts)
	if options.Overwrite {
		dropSetCookie(w.Header(), name)
	}
	if options.Signed && options.MaxAge >= 0 {
		value = m.sign(value)
	}
	http.SetCookie(w, options.cookie(name, value))
	return nil
}

// Get reads a cookie from the request. With WithSigned the signature is
// checked and the original value returned.
func (m *Manager) Get(r *http.Request, name string, opts ...Option) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}

	if applyOptions(m.defaults, opts).Signed {
		return m.verify(c.Value)
	}
	return c.Value, nil
}

// Delete expires the cookie on the client.
func (m *Manager) Delete(w http.ResponseWriter, name string, opts ...Option) {
	opts = append(opts, WithMaxAge(-1), WithSigned(false))
	_ = m.Set(w, name, "", opts...)
}

func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Set(w, name, value, append(opts, WithSigned(true))...)
}

func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	return m.Get(r, name, WithSigned(true))
}

// Jar binds the manager to one request/response pair.
func (m *Manager) Jar(w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{manager: m, w: w, r: r}
}

// Jar reads cookies from a request and writes them to its response.
// Reads always see the incoming request, never cookies set by this response.
type Jar struct {
	manager *Manager
	w       http.ResponseWriter
	r       *http.Request
}

// Get returns the cookie value, false when it is missing or its signature
// does not verify.
func (j *Jar) Get(name string, opts ...Option) (string, bool) {
	v, err := j.manager.Get(j.r, name, opts...)
	if err != nil {
		return "", false
	}
	return v, true
}

// Set queues the cookie on the response.
func (j *Jar) Set(name, value string, opts ...Option) {
	_ = j.manager.Set(j.w, name, value, opts...)
}

func (m *Manager) sign(value string) string {
	mac := hmac.New(sha256.New, []byte(m.secrets[0]))
	mac.Write([]byte(value))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return base64.URLEncoding.EncodeToString([]byte(value)) + "|" + signature
}

func (m *Manager) verify(signed string) (string, error) {
	encodedValue, signature, ok := strings.Cut(signed, "|")
	if !ok {
		return "", ErrInvalidFormat
	}

	value, err := base64.URLEncoding.DecodeString(encodedValue)
	if err != nil {
		return "", ErrInvalidFormat
	}

	// Old secrets stay valid during rotation
	for _, secret := range m.secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(value)
		expected := base64.URLEncoding.EncodeToString(mac.Sum(nil))

		if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1 {
			return string(value), nil
		}
	}

	return "", ErrInvalidSignature
}

func dropSetCookie(h http.Header, name string) {
	prefix := name + "="
	kept := slices.DeleteFunc(h.Values("Set-Cookie"), func(v string) bool {
		return strings.HasPrefix(v, prefix)
	})
	if len(kept) == 0 {
		h.Del("Set-Cookie")
		return
	}
	h["Set-Cookie"] = kept
}
