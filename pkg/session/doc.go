// Package session provides lazily loaded, store-backed HTTP sessions with
// atomic field-level updates.
//
// A signed, HTTP-only cookie carries nothing but a 24 character hex
// identifier. The identifier points at a document in a Store (MongoDB, Redis,
// PostgreSQL or memory). The document is loaded at most once per request, and
// every change is sent to the store as a field operation ($set, $unset, $inc,
// $push, ...) instead of rewriting the whole document. The store answers with
// the post-update document, which is folded back into the in-memory record so
// that it never holds stale keys.
//
// # Architecture
//
//	┌────────┐  sid cookie  ┌───────────────┐
//	│ Client │ ───────────► │  Middleware   │ attaches request slot + cookie jar
//	└────────┘              └───────────────┘
//	                                │ Manager.Load (single flight per request)
//	                                ▼
//	                        ┌───────────────┐   touch + ops    ┌───────┐
//	                        │   *Session    │ ───────────────► │ Store │
//	                        └───────────────┘ ◄─────────────── └───────┘
//	                                            updated document
//
// Each command also touches the session: expires is recomputed as now plus
// max age and written in the same update, and the cookie is rewritten.
//
// # Usage
//
//	cookies, _ := cookie.New([]string{os.Getenv("COOKIE_SECRET")})
//	manager := session.New(
//	    session.WithStore(mongo.NewSessionStore(collection)),
//	    session.WithCookieManager(cookies),
//	)
//	_ = manager.EnsureTTLIndex(ctx)
//
//	router.Use(manager.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    sess, err := manager.Load(r.Context())
//	    if err != nil { ... }
//	    if err := sess.Set(r.Context(), "message", "hello"); err != nil { ... }
//
//	    // several commands, one round trip
//	    err = sess.Update().Inc("views", 1).Unset("flash").Exec(r.Context())
//	}
//
// Destroy removes the document and clears the cookie; Regenerate does the same
// and then creates a new session for the same request, which is what a login
// handler should do to prevent fixation.
//
// # CSRF
//
// Every session is created with a random secret. Session.CSRFToken issues a
// token bound to it and Session.VerifyCSRF checks one. Manager.RequireCSRF wraps
// both into a middleware that answers 403 on mismatch.
//
// # Error Handling
//
// Validation failures (reserved or dotted keys, bad max age) wrap ErrValidation
// and are returned before any store call. Commands on a record that was never
// persisted return ErrNotPersisted; commands after Destroy return
// ErrSessionDestroyed. Store errors are returned unchanged.
//
// # Consistency
//
// Two requests that mutate the same session concurrently are not ordered
// against each other. Each Update is atomic in the store, and the last write
// to a field wins.
package session
