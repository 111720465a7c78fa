// Package mongo connects to MongoDB and provides a session.Store backed by a
// collection.
//
// New retries the initial connection and ping. SessionStore translates
// session mutations into native update operators applied with
// FindOneAndUpdate, returning the post-update document, and EnsureTTLIndex
// creates an expireAfterSeconds: 0 index so MongoDB removes sessions once
// their expires time has passed.
//
//	client, coll, err := mongo.NewSessionCollection(ctx, cfg)
//	store := mongo.NewSessionStore(coll)
//	manager := session.New(session.WithStore(store), ...)
//
// SessionStore.Ping backs readiness probes.
package mongo
