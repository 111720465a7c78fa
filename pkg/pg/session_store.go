package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

// SessionStore keeps sessions in the sessions table created by Migrate. The
// document is a JSONB column; expires_at mirrors its expires field so that
// expired rows can be filtered and swept with an index.
type SessionStore struct {
	pool *pgxpool.Pool
}

var _ session.Store = (*SessionStore)(nil)

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

const (
	findQuery   = `SELECT data FROM sessions WHERE id = $1 AND expires_at > now()`
	lockQuery   = `SELECT data FROM sessions WHERE id = $1 AND expires_at > now() FOR UPDATE`
	insertQuery = `INSERT INTO sessions (id, data, expires_at) VALUES ($1, $2, $3)`
	updateQuery = `UPDATE sessions SET data = $2, expires_at = $3 WHERE id = $1`
	deleteQuery = `DELETE FROM sessions WHERE id = $1`
	sweepQuery  = `DELETE FROM sessions WHERE expires_at <= now()`
)

func (s *SessionStore) FindOne(ctx context.Context, id session.ID) (session.Document, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, findQuery, id.Hex()).Scan(&data); err != nil {
		if IsNotFoundError(err) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	return session.DecodeJSON(data)
}

func (s *SessionStore) Insert(ctx context.Context, doc session.Document) error {
	id, ok := doc[session.FieldID].(session.ID)
	if !ok {
		return session.ErrInvalidID
	}
	data, err := session.EncodeJSON(doc)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertQuery, id.Hex(), data, expiresAt(doc)); err != nil {
		if IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

// Update locks the row, applies the mutation in process and writes the
// result back in the same transaction.
func (s *SessionStore) Update(ctx context.Context, id session.ID, m session.Mutation) (session.Document, error) {
	var updated session.Document

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var data []byte
		if err := tx.QueryRow(ctx, lockQuery, id.Hex()).Scan(&data); err != nil {
			if IsNotFoundError(err) {
				return session.ErrSessionNotFound
			}
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
		_, err = tx.Exec(ctx, updateQuery, id.Hex(), out, expiresAt(updated))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SessionStore) Remove(ctx context.Context, id session.ID) error {
	_, err := s.pool.Exec(ctx, deleteQuery, id.Hex())
	return err
}

// EnsureTTLIndex checks that field is the one the schema indexes. The index
// itself is created by Migrate; PostgreSQL has no TTL, see DeleteExpired.
func (s *SessionStore) EnsureTTLIndex(ctx context.Context, field string) error {
	if field != session.FieldExpires {
		return ErrUnsupportedTTLField
	}
	return nil
}

// DeleteExpired removes rows past their expiry and returns how many.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, sweepQuery)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// expiresAt falls back to the far future so documents without expires stay.
func expiresAt(doc session.Document) time.Time {
	if t, ok := doc[session.FieldExpires].(time.Time); ok {
		return t
	}
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}

// Ping acquires a pooled connection and pings it. It backs readiness probes.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
