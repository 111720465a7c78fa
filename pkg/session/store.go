package session

import "context"

// Store persists session documents. Implementations must be safe for
// concurrent use; a single Store is shared by every request.
type Store interface {
	// FindOne returns the document for id or ErrSessionNotFound
	FindOne(ctx context.Context, id ID) (Document, error)

	// Insert stores a new document
	Insert(ctx context.Context, doc Document) error

	// Update applies the mutation and returns the post-update document.
	// Returns ErrSessionNotFound when no document matches id.
	Update(ctx context.Context, id ID, m Mutation) (Document, error)

	// Remove deletes the document for id. Removing a missing document is not an error.
	Remove(ctx context.Context, id ID) error

	// EnsureTTLIndex prepares passive expiry on field. It must be idempotent.
	EnsureTTLIndex(ctx context.Context, field string) error
}
