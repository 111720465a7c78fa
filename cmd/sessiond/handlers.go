package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/atomicsession/pkg/logger"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

type handlers struct {
	manager *session.Manager
	log     *slog.Logger
}

func (h *handlers) mount(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/csrf", h.csrfToken)
	r.Post("/touch", h.touch)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Put("/fields/{key}", h.setField)
	r.Delete("/fields/{key}", h.unsetField)
	r.Post("/fields/{key}/inc", h.incField)
	r.Post("/fields/{key}/push", h.pushField)
}

type sessionView struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	MaxAgeMS  int64          `json:"max_age_ms"`
	Fields    map[string]any `json:"fields"`
}

func view(s *session.Session) sessionView {
	return sessionView{
		ID:        s.ID().Hex(),
		CreatedAt: s.CreatedAt(),
		ExpiresAt: s.ExpiresAt(),
		MaxAgeMS:  s.MaxAge().Milliseconds(),
		Fields:    s.Fields(),
	}
}

func (h *handlers) show(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, view(sess))
}

func (h *handlers) csrfToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	token, err := sess.CSRFToken()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]string{"token": token})
}

func (h *handlers) touch(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *session.Session) error { return s.Touch(r.Context()) })
}

// login regenerates the session so the identifier changes on privilege change.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	user := r.FormValue("user")
	if user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	fresh, err := sess.Regenerate(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	err = fresh.Update().
		Set("user", user).
		Set("login_ip", r.RemoteAddr).
		Inc("logins", 1).
		Exec(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view(fresh))
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := sess.Destroy(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) setField(w http.ResponseWriter, r *http.Request) {
	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		http.Error(w, "body must be a JSON value", http.StatusBadRequest)
		return
	}
	h.mutate(w, r, func(s *session.Session) error {
		return s.Set(r.Context(), chi.URLParam(r, "key"), value)
	})
}

func (h *handlers) unsetField(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *session.Session) error {
		return s.Unset(r.Context(), chi.URLParam(r, "key"))
	})
}

func (h *handlers) incField(w http.ResponseWriter, r *http.Request) {
	by := int64(1)
	if raw := r.URL.Query().Get("by"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "by must be an integer", http.StatusBadRequest)
			return
		}
		by = n
	}
	h.mutate(w, r, func(s *session.Session) error {
		return s.Inc(r.Context(), chi.URLParam(r, "key"), by)
	})
}

func (h *handlers) pushField(w http.ResponseWriter, r *http.Request) {
	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		http.Error(w, "body must be a JSON value", http.StatusBadRequest)
		return
	}
	h.mutate(w, r, func(s *session.Session) error {
		return s.Push(r.Context(), chi.URLParam(r, "key"), value)
	})
}

func (h *handlers) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view(sess))
}

func (h *handlers) load(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.manager.Load(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case session.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionDestroyed):
		http.Error(w, "session gone", http.StatusConflict)
	case errors.Is(err, session.ErrOperatorTarget):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.ErrorContext(r.Context(), "session command failed", logger.Component("sessiond"), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WarnContext(r.Context(), "write response", logger.Component("sessiond"), logger.Error(err))
	}
}
