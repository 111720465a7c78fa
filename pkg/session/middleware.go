package session

import (
	"net/http"

	"github.com/dmitrymomot/atomicsession/pkg/logger"
)

const (
	// CSRFHeader carries the token on AJAX requests
	CSRFHeader = "X-CSRF-Token"
	// CSRFFormField carries the token on form posts
	CSRFFormField = "_csrf"
)

// Middleware attaches a per-request session slot and cookie jar. The session
// itself is loaded lazily on the first Load call, so requests that never touch
// it cost nothing and set no cookie.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	if m.cookieManager == nil {
		panic("session: " + ErrNoCookieManager.Error())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := m.Attach(r.Context(), m.cookieManager.Jar(w, r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EnsureSession loads the session before calling next. Must run after Middleware.
func (m *Manager) EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Load(r.Context()); err != nil {
			m.log.ErrorContext(r.Context(), "failed to load session",
				logger.Component("session"),
				logger.Error(err),
			)
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF rejects unsafe requests whose token does not match the session
// secret. Must run after Middleware.
func (m *Manager) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.Load(r.Context())
		if err != nil {
			m.log.ErrorContext(r.Context(), "failed to load session",
				logger.Component("session"),
				logger.Error(err),
			)
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		token := r.Header.Get(CSRFHeader)
		if token == "" {
			token = r.FormValue(CSRFFormField)
		}

		if !sess.VerifyCSRF(token) {
			m.log.WarnContext(r.Context(), "csrf token rejected",
				logger.Component("session"),
				logger.SessionID(sess.ID().Hex()),
				logger.Error(ErrCSRFMismatch),
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
