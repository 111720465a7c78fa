// Package pg connects to PostgreSQL with pgxpool, applies the embedded goose
// migrations and provides a session.Store on the sessions table.
//
// SessionStore keeps each document as JSONB next to an indexed expires_at
// column. Update runs SELECT ... FOR UPDATE, applies the mutation with
// session.ApplyMutation and writes the row back in one transaction, so
// concurrent updates to a session are serialized by the row lock.
// PostgreSQL has no TTL: expired rows are hidden from reads and removed by
// DeleteExpired, which the sessiond binary runs periodically.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//	store := pg.NewSessionStore(pool)
package pg
