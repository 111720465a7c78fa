package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Documents are deep-copied
// on the way in and out, and updates run under the store lock, so each
// Update is atomic. Suitable for tests and single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[ID]Document
	ttlField string
	ticker   *time.Ticker
	done     chan struct{}
	close    sync.Once
}

// NewMemoryStore creates a new in-memory session store. A positive
// cleanupInterval starts a goroutine that evicts expired documents.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		docs:     make(map[ID]Document),
		ttlField: FieldExpires,
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

// FindOne returns a copy of the stored document
func (m *MemoryStore) FindOne(ctx context.Context, id ID) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok || m.expired(doc, time.Now()) {
		return nil, ErrSessionNotFound
	}
	return doc.Clone(), nil
}

// Insert stores a copy of doc. An expired document with the same id is replaced.
func (m *MemoryStore) Insert(ctx context.Context, doc Document) error {
	id, ok := toID(doc[FieldID])
	if !ok {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.docs[id]; ok && !m.expired(existing, time.Now()) {
		return ErrDuplicateID
	}

	stored := doc.Clone()
	stored[FieldID] = id
	m.docs[id] = stored
	return nil
}

// Update applies the mutation atomically and returns the new document
func (m *MemoryStore) Update(ctx context.Context, id ID, mut Mutation) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok || m.expired(doc, time.Now()) {
		return nil, ErrSessionNotFound
	}

	updated, err := ApplyMutation(doc, mut)
	if err != nil {
		return nil, err
	}
	m.docs[id] = updated
	return updated.Clone(), nil
}

// Remove deletes the document
func (m *MemoryStore) Remove(ctx context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, id)
	return nil
}

// EnsureTTLIndex sets the field whose time value marks expiry
func (m *MemoryStore) EnsureTTLIndex(ctx context.Context, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ttlField = field
	return nil
}

// DeleteExpired removes all expired documents
func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, doc := range m.docs {
		if m.expired(doc, now) {
			delete(m.docs, id)
		}
	}

	return nil
}

// Len returns the number of stored documents, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Close stops the cleanup goroutine
func (m *MemoryStore) Close() error {
	m.close.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
	return nil
}

// expired must be called with m.mu held.
func (m *MemoryStore) expired(doc Document, now time.Time) bool {
	t, ok := toTime(doc[m.ttlField])
	return ok && now.After(t)
}

// cleanupLoop runs periodic cleanup of expired documents
func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}
