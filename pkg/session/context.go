package session

import "context"

// FromContext returns the session already resolved for the request in ctx.
// It never loads; use Manager.Load for that.
func FromContext(ctx context.Context) (*Session, bool) {
	st, ok := stateFromContext(ctx)
	if !ok {
		return nil, false
	}
	sess := st.resolved()
	return sess, sess != nil
}

// MustFromContext retrieves a resolved session from the context or panics
func MustFromContext(ctx context.Context) *Session {
	sess, ok := FromContext(ctx)
	if !ok {
		panic("session: not found in context")
	}
	return sess
}
