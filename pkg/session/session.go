package session

import (
	"maps"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session is the in-memory view of one stored session document.
// Reserved attributes live in dedicated fields; everything else is kept in a
// separate user field map. A Session belongs to a single request.
type Session struct {
	mu        sync.RWMutex
	id        ID
	createdAt time.Time
	expiresAt time.Time
	maxAge    time.Duration
	secret    string
	fields    map[string]any
	loaded    bool
	destroyed bool

	state *requestState
}

func newSession(state *requestState, maxAge time.Duration) *Session {
	return &Session{
		maxAge: maxAge,
		fields: make(map[string]any),
		state:  state,
	}
}

// ID returns the identifier. It is the zero ObjectID until the record is persisted.
func (s *Session) ID() ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CreatedAt returns the creation time
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// ExpiresAt returns the time the store will evict the session
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// MaxAge returns the idle lifetime applied on every touch
func (s *Session) MaxAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxAge
}

// Secret returns the CSRF signing secret
func (s *Session) Secret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// IsLoaded reports whether the record mirrors a stored document
func (s *Session) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// IsDestroyed reports whether Destroy was called
func (s *Session) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// IsExpired returns true if the session has expired, by the manager's clock
func (s *Session) IsExpired() bool {
	return s.manager().now().After(s.ExpiresAt())
}

// Get retrieves a user field
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.fields[key]
	return val, ok
}

// Has reports whether a user field is present
func (s *Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// GetString retrieves a string user field
func (s *Session) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves an integer user field
func (s *Session) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetBool retrieves a bool user field
func (s *Session) GetBool(key string) (bool, bool) {
	val, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// Fields returns a copy of the user fields
func (s *Session) Fields() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.fields)
}

// document builds the initial stored form of a new record.
func (s *Session) document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := Document{
		FieldMaxAge:  s.maxAge.Milliseconds(),
		FieldExpires: s.expiresAt,
		FieldCreated: s.createdAt,
		FieldSecret:  s.secret,
	}
	if !s.id.IsZero() {
		doc[FieldID] = s.id
	}
	for k, v := range s.fields {
		doc[k] = v
	}
	return doc
}

// hydrate copies every stored field onto the record.
func (s *Session) hydrate(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := toID(doc[FieldID]); ok {
		s.id = id
	}
	s.assignReserved(doc)
	for k, v := range doc {
		if IsReservedKey(k) {
			continue
		}
		s.fields[k] = v
	}
	s.loaded = true
}

// reconcile makes the user fields match doc exactly: stale keys are dropped,
// present keys overwritten. The identifier is never replaced.
func (s *Session) reconcile(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignReserved(doc)
	for k := range s.fields {
		if _, ok := doc[k]; !ok {
			delete(s.fields, k)
		}
	}
	for k, v := range doc {
		if IsReservedKey(k) {
			continue
		}
		s.fields[k] = v
	}
}

// assignReserved must be called with s.mu held.
func (s *Session) assignReserved(doc Document) {
	if t, ok := toTime(doc[FieldCreated]); ok {
		s.createdAt = t
	}
	if t, ok := toTime(doc[FieldExpires]); ok {
		s.expiresAt = t
	}
	if v, ok := doc[FieldMaxAge]; ok {
		if d, err := ParseMaxAge(v); err == nil {
			s.maxAge = d
		}
	}
	if secret, ok := doc[FieldSecret].(string); ok {
		s.secret = secret
	}
}

func (s *Session) markDestroyed() (id ID, persisted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.loaded = false
	s.fields = make(map[string]any)
	return s.id, s.id != bson.NilObjectID
}
