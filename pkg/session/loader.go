package session

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// loadKey is the only singleflight key: a requestState serves one request.
const loadKey = "session"

// requestState is the per-request slot that caches the resolved session.
// It is either empty, has a load in flight (tracked by group), or holds current.
type requestState struct {
	manager *Manager
	jar     CookieJar

	mu      sync.Mutex
	current *Session
	// ignoreCookie is set after Destroy so the next load skips the incoming
	// cookie and creates a fresh session.
	ignoreCookie bool

	group singleflight.Group
}

func newRequestState(m *Manager, jar CookieJar) *requestState {
	return &requestState{manager: m, jar: jar}
}

// resolve returns the cached session, joins a load already in flight, or
// starts one. The singleflight entry is forgotten as soon as the load
// settles, so a failed load can be retried by a later call.
func (st *requestState) resolve(ctx context.Context) (*Session, error) {
	if sess := st.resolved(); sess != nil {
		return sess, nil
	}

	// The shared load must outlive a single caller; each caller still stops
	// waiting on its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	ch := st.group.DoChan(loadKey, func() (any, error) {
		if sess := st.resolved(); sess != nil {
			return sess, nil
		}

		st.mu.Lock()
		skipCookie := st.ignoreCookie
		st.mu.Unlock()

		sess, err := st.manager.load(loadCtx, st, skipCookie)
		if err != nil {
			return nil, err
		}

		st.mu.Lock()
		st.current = sess
		st.ignoreCookie = false
		st.mu.Unlock()
		return sess, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (st *requestState) resolved() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// detach drops sess from the slot if it is the current one.
func (st *requestState) detach(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == sess {
		st.current = nil
	}
	st.ignoreCookie = true
}

// replace installs a freshly created session as the current one.
func (st *requestState) replace(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = sess
	st.ignoreCookie = false
}

type stateContextKey struct{}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

func stateFromContext(ctx context.Context) (*requestState, bool) {
	st, ok := ctx.Value(stateContextKey{}).(*requestState)
	return st, ok
}
