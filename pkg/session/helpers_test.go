package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
	"github.com/dmitrymomot/atomicsession/pkg/session"
)

// memJar stands in for cookie.Jar: Set records the outgoing value, Get
// returns what the "browser" sent. replay builds the next request's jar.
type memJar struct {
	mu       sync.Mutex
	incoming map[string]string
	outgoing map[string]string
	writes   int
}

func newJar(incoming map[string]string) *memJar {
	if incoming == nil {
		incoming = map[string]string{}
	}
	return &memJar{incoming: incoming, outgoing: map[string]string{}}
}

func (j *memJar) Get(name string, _ ...cookie.Option) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.incoming[name]
	return v, ok
}

func (j *memJar) Set(name, value string, _ ...cookie.Option) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outgoing[name] = value
	j.writes++
}

func (j *memJar) sent(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.outgoing[name]
	return v, ok
}

func (j *memJar) replay() *memJar {
	j.mu.Lock()
	defer j.mu.Unlock()
	next := newJar(nil)
	for k, v := range j.outgoing {
		if v != "" {
			next.incoming[k] = v
		}
	}
	return next
}

// countingStore wraps MemoryStore and counts calls. delay slows FindOne and
// Insert so concurrent callers overlap.
type countingStore struct {
	*session.MemoryStore
	delay time.Duration

	finds   atomic.Int32
	inserts atomic.Int32
	updates atomic.Int32
	removes atomic.Int32
	lastMut atomic.Pointer[session.Mutation]

	// failInsert makes the next Insert return errStoreDown
	failInsert atomic.Bool
}

var errStoreDown = errors.New("store down")

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	mem := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	return &countingStore{MemoryStore: mem}
}

func (s *countingStore) FindOne(ctx context.Context, id session.ID) (session.Document, error) {
	s.finds.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.MemoryStore.FindOne(ctx, id)
}

func (s *countingStore) Insert(ctx context.Context, doc session.Document) error {
	s.inserts.Add(1)
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.failInsert.CompareAndSwap(true, false) {
		return errStoreDown
	}
	return s.MemoryStore.Insert(ctx, doc)
}

func (s *countingStore) Update(ctx context.Context, id session.ID, m session.Mutation) (session.Document, error) {
	s.updates.Add(1)
	s.lastMut.Store(&m)
	return s.MemoryStore.Update(ctx, id, m)
}

func (s *countingStore) Remove(ctx context.Context, id session.ID) error {
	s.removes.Add(1)
	return s.MemoryStore.Remove(ctx, id)
}

// wait simulates store latency and gives up when ctx is done, like a driver would.
func (s *countingStore) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *countingStore) calls() int32 {
	return s.finds.Load() + s.inserts.Load() + s.updates.Load() + s.removes.Load()
}

const cookieName = "sid"

func newManager(t *testing.T, store session.Store, opts ...session.Option) *session.Manager {
	t.Helper()
	return session.New(append([]session.Option{session.WithStore(store)}, opts...)...)
}

// loadFresh attaches a new request without a cookie and loads its session.
func loadFresh(t *testing.T, m *session.Manager) (context.Context, *session.Session, *memJar) {
	t.Helper()
	jar := newJar(nil)
	ctx := m.Attach(context.Background(), jar)
	sess, err := m.Load(ctx)
	require.NoError(t, err)
	return ctx, sess, jar
}
