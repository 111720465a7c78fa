package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

const (
	defaultPrefix    = "session:"
	defaultTxRetries = 8
)

// SessionStore keeps each session as a JSON value under prefix+hex(id). The
// key TTL follows the document's expires field, so Redis does the expiry.
// Updates are read-modify-write under WATCH and retried when another client
// changes the key in between.
type SessionStore struct {
	db        redis.UniversalClient
	prefix    string
	txRetries int
}

var _ session.Store = (*SessionStore)(nil)

type StoreOption func(*SessionStore)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) StoreOption {
	return func(s *SessionStore) {
		s.prefix = prefix
	}
}

// WithTxRetries bounds how often a contended Update is retried
func WithTxRetries(n int) StoreOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.txRetries = n
		}
	}
}

func NewSessionStore(client redis.UniversalClient, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		db:        client,
		prefix:    defaultPrefix,
		txRetries: defaultTxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionStoreFromConfig applies SessionPrefix and MaxTxRetries from cfg.
func NewSessionStoreFromConfig(client redis.UniversalClient, cfg Config) *SessionStore {
	opts := []StoreOption{WithTxRetries(cfg.MaxTxRetries)}
	if cfg.SessionPrefix != "" {
		opts = append(opts, WithPrefix(cfg.SessionPrefix))
	}
	return NewSessionStore(client, opts...)
}

func (s *SessionStore) key(id session.ID) string {
	return s.prefix + id.Hex()
}

func (s *SessionStore) FindOne(ctx context.Context, id session.ID) (session.Document, error) {
	data, err := s.db.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session.DecodeJSON(data)
}

// Insert writes the document only if the key is free.
func (s *SessionStore) Insert(ctx context.Context, doc session.Document) error {
	id, ok := doc[session.FieldID].(session.ID)
	if !ok {
		return session.ErrInvalidID
	}
	data, err := session.EncodeJSON(doc)
	if err != nil {
		return err
	}

	created, err := s.db.SetNX(ctx, s.key(id), data, ttl(doc)).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateID
	}
	return nil
}

func (s *SessionStore) Update(ctx context.Context, id session.ID, m session.Mutation) (session.Document, error) {
	key := s.key(id)

	for range s.txRetries {
		var updated session.Document

		err := s.db.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return session.ErrSessionNotFound
			}
			if err != nil {
				return err
			}

			doc, err := session.DecodeJSON(data)
			if err != nil {
				return err
			}
			if updated, err = session.ApplyMutation(doc, m); err != nil {
				return err
			}

			out, err := session.EncodeJSON(updated)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, ttl(updated))
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, ErrTxContention
}

func (s *SessionStore) Remove(ctx context.Context, id session.ID) error {
	return s.db.Del(ctx, s.key(id)).Err()
}

// EnsureTTLIndex is a no-op: every write sets the key TTL from expires.
func (s *SessionStore) EnsureTTLIndex(ctx context.Context, field string) error {
	return nil
}

// ttl returns the time left until the document's expires field, or 0
// (no expiry) when the field is missing. A past expiry maps to one
// millisecond so the key disappears right away.
func ttl(doc session.Document) time.Duration {
	expires, ok := doc[session.FieldExpires].(time.Time)
	if !ok {
		return 0
	}
	if d := time.Until(expires); d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

// Ping checks the connection. It backs readiness probes.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
