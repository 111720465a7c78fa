package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

func TestNew_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { session.New() })
}

func TestManager_LoadWithoutRequestState(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoRequestState)

	_, ok := m.Peek(context.Background())
	assert.False(t, ok)
}

func TestManager_LoadCreatesSession(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(t, store, session.WithClock(func() time.Time { return now }), session.WithMaxAge(time.Hour))

	ctx, sess, jar := loadFresh(t, m)

	assert.True(t, sess.IsLoaded())
	assert.False(t, sess.ID().IsZero())
	assert.NotEmpty(t, sess.Secret())
	assert.Equal(t, now, sess.CreatedAt())
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt())
	assert.Equal(t, time.Hour, sess.MaxAge())
	assert.Empty(t, sess.Fields())

	sent, ok := jar.sent(cookieName)
	require.True(t, ok)
	assert.Equal(t, sess.ID().Hex(), sent)

	assert.Equal(t, int32(0), store.finds.Load())
	assert.Equal(t, int32(1), store.inserts.Load())

	peeked, ok := m.Peek(ctx)
	assert.True(t, ok)
	assert.Same(t, sess, peeked)

	fromCtx, ok := session.FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, sess, fromCtx)
}

func TestManager_FromContextBeforeLoad(t *testing.T) {
	t.Parallel()
	m := newManager(t, newCountingStore(t))
	ctx := m.Attach(context.Background(), newJar(nil))

	_, ok := session.FromContext(ctx)
	assert.False(t, ok)
	assert.Panics(t, func() { session.MustFromContext(ctx) })
}

func TestManager_ConcurrentLoadSharesOneRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("new session", func(t *testing.T) {
		store := newCountingStore(t)
		store.delay = 20 * time.Millisecond
		m := newManager(t, store)
		ctx := m.Attach(context.Background(), newJar(nil))

		results := loadConcurrently(t, m, ctx, 20)
		for _, s := range results {
			assert.Same(t, results[0], s)
		}
		assert.Equal(t, int32(1), store.inserts.Load())
		assert.Equal(t, int32(0), store.finds.Load())
	})

	t.Run("existing session", func(t *testing.T) {
		store := newCountingStore(t)
		m := newManager(t, store)
		_, first, jar := loadFresh(t, m)

		store.delay = 20 * time.Millisecond
		ctx := m.Attach(context.Background(), jar.replay())

		results := loadConcurrently(t, m, ctx, 20)
		for _, s := range results {
			assert.Same(t, results[0], s)
		}
		assert.Equal(t, first.ID(), results[0].ID())
		assert.Equal(t, int32(1), store.finds.Load())
		assert.Equal(t, int32(1), store.inserts.Load())
	})
}

func loadConcurrently(t *testing.T, m *session.Manager, ctx context.Context, n int) []*session.Session {
	t.Helper()
	results := make([]*session.Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Load(ctx)
			assert.NoError(t, err)
			results[i] = sess
		}()
	}
	wg.Wait()
	return results
}

func TestManager_LoadIsCachedPerRequest(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)
	ctx, first, _ := loadFresh(t, m)

	second, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), store.calls())
}

func TestManager_LoadExisting(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	m := newManager(t, store)

	ctx, sess, jar := loadFresh(t, m)
	require.NoError(t, sess.Set(ctx, "user", "alice"))

	next := m.Attach(context.Background(), jar.replay())
	again, err := m.Load(next)
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), again.ID())
	assert.Equal(t, sess.Secret(), again.Secret())
	name, ok := again.GetString("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)
	assert.Equal(t, int32(1), store.inserts.Load())
}

func TestManager_LoadFallsBackToCreate(t *testing.T) {
	t.Parallel()

	t.Run("malformed cookie skips the store", func(t *testing.T) {
		store := newCountingStore(t)
		m := newManager(t, store)
		ctx := m.Attach(context.Background(), newJar(map[string]string{cookieName: "not-an-id"}))

		_, err := m.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(0), store.finds.Load())
		assert.Equal(t, int32(1), store.inserts.Load())
	})

	t.Run("unknown id", func(t *testing.T) {
		store := newCountingStore(t)
		m := newManager(t, store)
		unknown := session.NewID()
		ctx := m.Attach(context.Background(), newJar(map[string]string{cookieName: unknown.Hex()}))

		sess, err := m.Load(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, unknown, sess.ID())
		assert.Equal(t, int32(1), store.finds.Load())
		assert.Equal(t, int32(1), store.inserts.Load())
	})

	t.Run("expired document", func(t *testing.T) {
		store := newCountingStore(t)
		now := time.Now()
		m := newManager(t, store, session.WithMaxAge(time.Hour), session.WithClock(func() time.Time { return now }))
		_, old, jar := loadFresh(t, m)

		later := newManager(t, store, session.WithMaxAge(time.Hour),
			session.WithClock(func() time.Time { return now.Add(2 * time.Hour) }))
		sess, err := later.Load(later.Attach(context.Background(), jar.replay()))
		require.NoError(t, err)
		assert.NotEqual(t, old.ID(), sess.ID())
	})
}

func TestManager_FailedLoadCanBeRetried(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	store.failInsert.Store(true)
	m := newManager(t, store)
	ctx := m.Attach(context.Background(), newJar(nil))

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, errStoreDown)
	_, ok := m.Peek(ctx)
	assert.False(t, ok)

	sess, err := m.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsLoaded())
	assert.Equal(t, int32(2), store.inserts.Load())
}

func TestManager_LoadHonoursContext(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	store.delay = 200 * time.Millisecond
	m := newManager(t, store)

	ctx, cancel := context.WithTimeout(m.Attach(context.Background(), newJar(nil)), 10*time.Millisecond)
	defer cancel()

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_CancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()
	store := newCountingStore(t)
	store.delay = 100 * time.Millisecond
	m := newManager(t, store)
	base := m.Attach(context.Background(), newJar(nil))

	first, cancel := context.WithCancel(base)
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Load(first)
		firstErr <- err
	}()

	// join the load started by the first caller, then drop that caller
	time.Sleep(20 * time.Millisecond)
	secondDone := make(chan *session.Session, 1)
	go func() {
		sess, err := m.Load(base)
		assert.NoError(t, err)
		secondDone <- sess
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	sess := <-secondDone
	require.NotNil(t, sess)
	assert.True(t, sess.IsLoaded())
	assert.Equal(t, int32(1), store.inserts.Load())
}

func TestManager_EnsureTTLIndex(t *testing.T) {
	t.Parallel()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	m := newManager(t, store)

	require.NoError(t, m.EnsureTTLIndex(context.Background()))
	assert.Equal(t, "sid", m.CookieName())
}
