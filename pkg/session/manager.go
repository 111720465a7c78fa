package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
	"github.com/dmitrymomot/atomicsession/pkg/csrf"
	"github.com/dmitrymomot/atomicsession/pkg/logger"
)

// Manager handles the session lifecycle. It is safe for concurrent use and is
// normally created once per process.
type Manager struct {
	store         Store
	cookieManager *cookie.Manager
	cookieOptions []cookie.Option
	cookieName    string
	maxAge        time.Duration
	secureCookies bool
	tokens        TokenService
	log           *slog.Logger
	now           func() time.Time
}

// New creates a new session manager with the given options.
// It panics when no store is configured.
func New(opts ...Option) *Manager {
	m := &Manager{
		cookieName: DefaultConfig().CookieName,
		maxAge:     DefaultMaxAge,
		tokens:     csrf.New(),
		log:        slog.New(slog.DiscardHandler),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		// Fail fast: every operation needs the store
		panic(fmt.Sprintf("session: %v", ErrNoStore))
	}

	return m
}

// CookieName returns the identifier cookie name
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Attach prepares ctx for one request. Middleware calls it with a cookie.Jar;
// tests and non-HTTP callers can pass their own CookieJar.
func (m *Manager) Attach(ctx context.Context, jar CookieJar) context.Context {
	return withState(ctx, newRequestState(m, jar))
}

// Load returns the session of the current request, creating one when the
// request carries no usable identifier. Repeated and concurrent calls within a
// request share one store round trip and return the same *Session.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	st, ok := stateFromContext(ctx)
	if !ok || st.manager != m {
		return nil, ErrNoRequestState
	}
	return st.resolve(ctx)
}

// Peek returns the session if this request already resolved it, without loading.
func (m *Manager) Peek(ctx context.Context) (*Session, bool) {
	st, ok := stateFromContext(ctx)
	if !ok || st.manager != m {
		return nil, false
	}
	sess := st.resolved()
	return sess, sess != nil
}

// EnsureTTLIndex asks the store to expire documents on the expires field.
// Run it once at startup.
func (m *Manager) EnsureTTLIndex(ctx context.Context) error {
	return m.store.EnsureTTLIndex(ctx, FieldExpires)
}

// load resolves the session for st: it reuses the cookie identifier when it
// points at a live document and falls back to creating a new session.
func (m *Manager) load(ctx context.Context, st *requestState, skipCookie bool) (*Session, error) {
	if !skipCookie {
		raw, ok := st.jar.Get(m.cookieName, cookie.WithSigned(true))
		if ok && IsValidID(raw) {
			id, err := ParseID(raw)
			if err != nil {
				return nil, err
			}

			doc, err := m.store.FindOne(ctx, id)
			switch {
			case errors.Is(err, ErrSessionNotFound):
			case err != nil:
				return nil, err
			default:
				sess := newSession(st, m.maxAge)
				sess.hydrate(doc)
				if !sess.ExpiresAt().Before(m.now()) {
					m.log.DebugContext(ctx, "session loaded", logger.SessionID(sess.ID().Hex()))
					return sess, nil
				}
			}
		}
	}

	return m.create(ctx, st)
}

// create persists a brand new session and sets the identifier cookie.
func (m *Manager) create(ctx context.Context, st *requestState) (*Session, error) {
	secret, err := m.tokens.NewSecret()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := newSession(st, m.maxAge)
	sess.createdAt = now
	sess.expiresAt = now.Add(m.maxAge)
	sess.secret = secret

	id := NewID()
	doc := sess.document()
	doc[FieldID] = id

	if err := m.store.Insert(ctx, doc); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.id = id
	sess.loaded = true
	sess.mu.Unlock()

	m.writeCookie(st, sess)
	m.log.DebugContext(ctx, "session created", logger.SessionID(id.Hex()))
	return sess, nil
}

// destroy clears the cookie, detaches sess from its request and removes the
// stored document when there is one.
func (m *Manager) destroy(ctx context.Context, sess *Session) error {
	st := sess.state
	st.jar.Set(m.cookieName, "", m.cookieOpts(-1)...)
	st.detach(sess)

	id, persisted := sess.markDestroyed()
	if !persisted {
		return nil
	}
	if err := m.store.Remove(ctx, id); err != nil {
		return err
	}
	m.log.DebugContext(ctx, "session destroyed", logger.SessionID(id.Hex()))
	return nil
}

// regenerate destroys sess and installs a new session in the same request.
func (m *Manager) regenerate(ctx context.Context, sess *Session) (*Session, error) {
	if err := m.destroy(ctx, sess); err != nil {
		return nil, err
	}

	st := sess.state
	fresh, err := m.create(ctx, st)
	if err != nil {
		return nil, err
	}
	st.replace(fresh)
	return fresh, nil
}

// update runs one touch plus the given operations against the store and
// folds the returned document back into sess.
func (m *Manager) update(ctx context.Context, sess *Session, ops []Operation, maxAge time.Duration, expires time.Time) error {
	sess.mu.RLock()
	id, destroyed := sess.id, sess.destroyed
	current := sess.maxAge
	sess.mu.RUnlock()

	if destroyed {
		return ErrSessionDestroyed
	}
	if id.IsZero() {
		return ErrNotPersisted
	}

	if maxAge > 0 {
		ops = append([]Operation{{Op: OpSet, Key: FieldMaxAge, Value: maxAge.Milliseconds()}}, ops...)
		current = maxAge
	}
	if expires.IsZero() {
		expires = m.now().Add(current)
	}

	doc, err := m.store.Update(ctx, id, Mutation{Expires: expires, Ops: ops})
	if err != nil {
		return err
	}

	sess.reconcile(doc)
	m.writeCookie(sess.state, sess)
	return nil
}

// reload re-fetches the stored document.
func (m *Manager) reload(ctx context.Context, sess *Session) error {
	sess.mu.RLock()
	id, destroyed := sess.id, sess.destroyed
	sess.mu.RUnlock()

	if destroyed {
		return ErrSessionDestroyed
	}
	if id.IsZero() {
		return ErrNotPersisted
	}

	doc, err := m.store.FindOne(ctx, id)
	if err != nil {
		return err
	}
	sess.reconcile(doc)
	return nil
}

func (m *Manager) writeCookie(st *requestState, sess *Session) {
	seconds := int(sess.MaxAge() / time.Second)
	st.jar.Set(m.cookieName, sess.ID().Hex(), m.cookieOpts(seconds)...)
}

// cookieOpts sets only what the session owns; Path, Domain and SameSite come
// from the cookie manager defaults.
func (m *Manager) cookieOpts(maxAge int) []cookie.Option {
	opts := []cookie.Option{
		cookie.WithMaxAge(maxAge),
		cookie.WithHTTPOnly(true),
		cookie.WithSigned(true),
		cookie.WithOverwrite(true),
	}
	if m.secureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	return append(opts, m.cookieOptions...)
}
