package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

// clock is a manual time source shared by a manager under test.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSession_SetUnset(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Set(ctx, "theme", "dark"))
	v, ok := sess.Get("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	stored, err := store.MemoryStore.FindOne(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, "dark", stored["theme"])

	require.NoError(t, sess.Unset(ctx, "theme"))
	assert.False(t, sess.Has("theme"))

	stored, err = store.MemoryStore.FindOne(ctx, sess.ID())
	require.NoError(t, err)
	assert.NotContains(t, stored, "theme")
}

func TestSession_UpdateReconcilesWithStore(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Update().Set("a", 1).Set("b", 2).Exec(ctx))

	// another request removes b and adds c behind this record's back
	_, err := store.MemoryStore.Update(ctx, sess.ID(), session.Mutation{Ops: []session.Operation{
		{Op: session.OpUnset, Key: "b"},
		{Op: session.OpSet, Key: "c", Value: 3},
	}})
	require.NoError(t, err)

	require.NoError(t, sess.Inc(ctx, "a", 1))
	assert.Equal(t, map[string]any{"a": int64(2), "c": 3}, sess.Fields())
}

func TestSession_BatchedCommandsOneRoundTrip(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)
	before := store.updates.Load()

	err := sess.Update().
		Set("user", "alice").
		Inc("logins", 1).
		Push("history", "/").
		AddToSet("roles", "member").
		AddToSet("roles", "member").
		Max("best", 10).
		Min("worst", 1).
		Mul("score", 2).
		Exec(ctx)
	require.NoError(t, err)

	assert.Equal(t, before+1, store.updates.Load())
	fields := sess.Fields()
	assert.Equal(t, "alice", fields["user"])
	assert.Equal(t, int64(1), fields["logins"])
	assert.Equal(t, []any{"/"}, fields["history"])
	assert.Equal(t, []any{"member"}, fields["roles"])
	assert.Equal(t, 10, fields["best"])
	assert.Equal(t, 1, fields["worst"])
	assert.Equal(t, int64(0), fields["score"])

	require.NoError(t, sess.Update().Pull("roles", "member").PopLast("history").Rename("user", "owner").Exec(ctx))
	fields = sess.Fields()
	assert.Equal(t, []any{}, fields["roles"])
	assert.Equal(t, []any{}, fields["history"])
	assert.Equal(t, "alice", fields["owner"])
	assert.NotContains(t, fields, "user")
}

func TestSession_Shorthands(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Push(ctx, "cart", "book"))
	require.NoError(t, sess.Push(ctx, "cart", "pen"))
	require.NoError(t, sess.Pull(ctx, "cart", "book"))
	require.NoError(t, sess.AddToSet(ctx, "tags", "x"))
	require.NoError(t, sess.Rename(ctx, "tags", "labels"))

	assert.Equal(t, []any{"pen"}, sess.Fields()["cart"])
	assert.Equal(t, []any{"x"}, sess.Fields()["labels"])

	require.NoError(t, sess.Update().PopFirst("cart").Exec(ctx))
	assert.Equal(t, []any{}, sess.Fields()["cart"])
}

func TestSession_ValidationNeverReachesStore(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)
	calls := store.calls()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"reserved id", func() error { return sess.Set(ctx, "_id", "x") }, session.ErrReservedKey},
		{"reserved expires", func() error { return sess.Set(ctx, "expires", 1) }, session.ErrReservedKey},
		{"reserved maxAge", func() error { return sess.Unset(ctx, "maxAge") }, session.ErrReservedKey},
		{"reserved secret", func() error { return sess.Set(ctx, "secret", "x") }, session.ErrReservedKey},
		{"nested", func() error { return sess.Set(ctx, "a.b", 1) }, session.ErrNestedKey},
		{"empty", func() error { return sess.Set(ctx, "", 1) }, session.ErrInvalidKey},
		{"operator", func() error { return sess.Set(ctx, "$where", 1) }, session.ErrInvalidKey},
		{"inc non-number", func() error { return sess.Inc(ctx, "n", "1") }, session.ErrInvalidOperation},
		{"rename onto reserved", func() error { return sess.Rename(ctx, "a", "created") }, session.ErrReservedKey},
		{"rename onto itself", func() error { return sess.Rename(ctx, "a", "a") }, session.ErrInvalidOperation},
		{"bad max age", func() error { return sess.SetMaxAge(ctx, "whenever") }, session.ErrInvalidMaxAge},
		{"past expiry", func() error { return sess.SetExpires(ctx, time.Now().Add(-time.Hour)) }, session.ErrInvalidExpires},
		{"first error wins", func() error {
			return sess.Update().Set("ok", 1).Set("a.b", 1).Set("_id", 1).Exec(ctx)
		}, session.ErrNestedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, session.IsValidationError(err))
		})
	}

	assert.Equal(t, calls, store.calls())
	assert.False(t, sess.Has("ok"))
}

func TestSession_UpdateErr(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	_, sess, _ := loadFresh(t, m)

	u := sess.Update().Set("fine", 1)
	assert.NoError(t, u.Err())
	assert.ErrorIs(t, u.Set("bad.key", 1).Err(), session.ErrNestedKey)
}

func TestSession_TouchRefreshesExpiry(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	c := &clock{now: time.Now()}
	m := newManager(t, store, session.WithClock(c.Now), session.WithMaxAge(time.Hour))
	ctx, sess, jar := loadFresh(t, m)
	writes := jar.writes

	c.Advance(10 * time.Minute)
	require.NoError(t, sess.Touch(ctx))

	assert.Equal(t, c.now.Add(time.Hour), sess.ExpiresAt())
	mut := store.lastMut.Load()
	require.NotNil(t, mut)
	assert.Equal(t, c.now.Add(time.Hour), mut.Expires)
	assert.Empty(t, mut.Ops)
	assert.Equal(t, writes+1, jar.writes, "cookie is rewritten on every command")

	c.Advance(10 * time.Minute)
	require.NoError(t, sess.Set(ctx, "x", 1))
	assert.Equal(t, c.now.Add(time.Hour), sess.ExpiresAt())
}

func TestSession_SetMaxAge(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	c := &clock{now: time.Now()}
	m := newManager(t, store, session.WithClock(c.Now))
	ctx, sess, _ := loadFresh(t, m)
	assert.Equal(t, session.DefaultMaxAge, sess.MaxAge())

	require.NoError(t, sess.SetMaxAge(ctx, "1 hour"))
	assert.Equal(t, time.Hour, sess.MaxAge())
	assert.Equal(t, c.now.Add(time.Hour), sess.ExpiresAt())

	mut := store.lastMut.Load()
	require.NotEmpty(t, mut.Ops)
	assert.Equal(t, session.Operation{Op: session.OpSet, Key: session.FieldMaxAge, Value: int64(3600000)}, mut.Ops[0])

	// the new max age drives later touches and survives a reload
	c.Advance(time.Minute)
	require.NoError(t, sess.Touch(ctx))
	assert.Equal(t, c.now.Add(time.Hour), sess.ExpiresAt())

	require.NoError(t, sess.Reload(ctx))
	assert.Equal(t, time.Hour, sess.MaxAge())
}

func TestSession_SetExpires(t *testing.T) {
	t.Parallel()
	c := &clock{now: time.Now()}
	m := newManager(t, newCountingStore(t), session.WithClock(c.Now))
	ctx, sess, _ := loadFresh(t, m)

	at := c.now.Add(3 * time.Hour)
	require.NoError(t, sess.SetExpires(ctx, at))
	assert.Equal(t, at, sess.ExpiresAt())

	require.NoError(t, sess.SetExpires(ctx, "30 minutes"))
	assert.Equal(t, c.now.Add(30*time.Minute), sess.ExpiresAt())
}

func TestSession_Destroy(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, jar := loadFresh(t, m)
	require.NoError(t, sess.Set(ctx, "user", "alice"))
	oldID := sess.ID()

	require.NoError(t, sess.Destroy(ctx))
	assert.True(t, sess.IsDestroyed())
	assert.False(t, sess.IsLoaded())
	assert.Empty(t, sess.Fields())
	assert.Equal(t, 0, store.Len())

	sent, ok := jar.sent(cookieName)
	assert.True(t, ok)
	assert.Empty(t, sent)

	assert.ErrorIs(t, sess.Set(ctx, "user", "bob"), session.ErrSessionDestroyed)
	assert.ErrorIs(t, sess.Reload(ctx), session.ErrSessionDestroyed)
	assert.NoError(t, sess.Destroy(ctx))
	assert.Equal(t, int32(1), store.removes.Load())

	_, ok = m.Peek(ctx)
	assert.False(t, ok)

	// a later Load in the same request ignores the old cookie
	fresh, err := m.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, fresh.ID())
	assert.False(t, fresh.Has("user"))
}

func TestSession_Regenerate(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, jar := loadFresh(t, m)
	require.NoError(t, sess.Set(ctx, "cart", []any{"book"}))
	oldID, oldSecret := sess.ID(), sess.Secret()

	fresh, err := sess.Regenerate(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, oldID, fresh.ID())
	assert.NotEqual(t, oldSecret, fresh.Secret())
	assert.Empty(t, fresh.Fields())
	assert.True(t, sess.IsDestroyed())
	assert.Equal(t, 1, store.Len())

	_, err = store.MemoryStore.FindOne(ctx, oldID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	sent, _ := jar.sent(cookieName)
	assert.Equal(t, fresh.ID().Hex(), sent)

	current, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, fresh, current)

	again, err := sess.Regenerate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, fresh.ID(), again.ID())
}

func TestSession_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, store.MemoryStore.Remove(ctx, sess.ID()))
	assert.ErrorIs(t, sess.Set(ctx, "a", 1), session.ErrSessionNotFound)
	assert.ErrorIs(t, sess.Reload(ctx), session.ErrSessionNotFound)
}

func TestSession_OperatorTargetError(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Set(ctx, "name", "alice"))
	err := sess.Inc(ctx, "name", 1)
	assert.ErrorIs(t, err, session.ErrOperatorTarget)
	assert.False(t, session.IsValidationError(err))

	name, _ := sess.GetString("name")
	assert.Equal(t, "alice", name)
}

func TestSession_CSRF(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	_, sess, _ := loadFresh(t, m)
	_, other, _ := loadFresh(t, m)

	token, err := sess.CSRFToken()
	require.NoError(t, err)

	assert.True(t, sess.VerifyCSRF(token))
	assert.False(t, other.VerifyCSRF(token))
	assert.False(t, sess.VerifyCSRF(""))
	assert.False(t, sess.VerifyCSRF("garbage"))
}

func TestSession_Accessors(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Update().Set("n", 42).Set("ok", true).Set("s", "str").Exec(ctx))

	n, ok := sess.GetInt("n")
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	b, ok := sess.GetBool("ok")
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = sess.GetInt("s")
	assert.False(t, ok)
	_, ok = sess.GetString("missing")
	assert.False(t, ok)
	assert.False(t, sess.IsExpired())

	fields := sess.Fields()
	fields["n"] = 0
	n, _ = sess.GetInt("n")
	assert.Equal(t, 42, n, "Fields returns a copy")
}

func TestSession_Reload(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, sess, _ := loadFresh(t, m)

	require.NoError(t, sess.Set(ctx, "a", 1))
	_, err := store.MemoryStore.Update(ctx, sess.ID(), session.Mutation{Ops: []session.Operation{
		{Op: session.OpUnset, Key: "a"},
		{Op: session.OpSet, Key: "b", Value: "x"},
	}})
	require.NoError(t, err)

	writes := store.updates.Load()
	require.NoError(t, sess.Reload(ctx))
	assert.Equal(t, map[string]any{"b": "x"}, sess.Fields())
	assert.Equal(t, writes, store.updates.Load(), "reload must not write")

	require.NoError(t, sess.Destroy(ctx))
	assert.ErrorIs(t, sess.Reload(ctx), session.ErrSessionDestroyed)
}

func TestSession_IsExpiredUsesManagerClock(t *testing.T) {
	t.Parallel()
	c := &clock{now: time.Now()}
	m := newManager(t, newCountingStore(t), session.WithClock(c.Now), session.WithMaxAge(time.Hour))
	_, sess, _ := loadFresh(t, m)

	assert.False(t, sess.IsExpired())
	c.Advance(2 * time.Hour)
	assert.True(t, sess.IsExpired())
}
