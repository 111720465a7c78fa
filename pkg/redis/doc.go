// Package redis connects to Redis and provides a session.Store on top of it.
//
// Connect parses a redis:// URL and retries the initial ping. SessionStore
// stores each session as JSON under "session:<hex id>" with a TTL taken from
// the document's expires field. Update reads the document under WATCH,
// applies the mutation in process with session.ApplyMutation and writes it
// back in MULTI/EXEC; a concurrent write to the same key aborts the
// transaction and the update is retried.
//
//	client, err := redis.Connect(ctx, cfg)
//	store := redis.NewSessionStoreFromConfig(client, cfg)
//
// SessionStore.Ping backs readiness probes.
package redis
