package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

// SessionStore keeps session documents in a MongoDB collection and passes
// field commands through as native update operators.
type SessionStore struct {
	coll *mongo.Collection
}

var _ session.Store = (*SessionStore)(nil)

func NewSessionStore(coll *mongo.Collection) *SessionStore {
	return &SessionStore{coll: coll}
}

func (s *SessionStore) FindOne(ctx context.Context, id session.ID) (session.Document, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, bson.D{{Key: session.FieldID, Value: id}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDocument(raw)
}

func (s *SessionStore) Insert(ctx context.Context, doc session.Document) error {
	_, err := s.coll.InsertOne(ctx, bson.M(doc))
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(session.ErrDuplicateID, err)
	}
	return err
}

// Update sends the touch and the operations in as few FindOneAndUpdate calls
// as MongoDB allows. Operations that write the same path cannot share one
// update document, so they go into later batches; each batch repeats the touch.
func (s *SessionStore) Update(ctx context.Context, id session.ID, m session.Mutation) (session.Document, error) {
	filter := bson.D{{Key: session.FieldID, Value: id}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	for _, batch := range partition(m.Ops) {
		raw = nil
		err := s.coll.FindOneAndUpdate(ctx, filter, buildUpdate(m.Expires, batch), opts).Decode(&raw)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrSessionNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return toDocument(raw)
}

func (s *SessionStore) Remove(ctx context.Context, id session.ID) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: session.FieldID, Value: id}})
	return err
}

// EnsureTTLIndex creates a TTL index that removes documents once the time in
// field has passed. Creating an identical index again is a no-op.
func (s *SessionStore) EnsureTTLIndex(ctx context.Context, field string) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName(field + "_ttl"),
	})
	return err
}

// partition splits ops into batches in which no path is written twice.
// An empty op list still yields one batch so the touch is sent.
func partition(ops []session.Operation) [][]session.Operation {
	batches := [][]session.Operation{nil}
	seen := map[string]struct{}{}

	for _, op := range ops {
		conflict := false
		for _, p := range op.Paths() {
			if _, ok := seen[p]; ok {
				conflict = true
				break
			}
		}
		if conflict {
			batches = append(batches, nil)
			clear(seen)
		}
		for _, p := range op.Paths() {
			seen[p] = struct{}{}
		}
		last := len(batches) - 1
		batches[last] = append(batches[last], op)
	}
	return batches
}

// buildUpdate groups ops by operator. $set always carries expires when set.
func buildUpdate(expires time.Time, ops []session.Operation) bson.D {
	groups := map[session.Operator]bson.D{}
	var order []session.Operator

	add := func(op session.Operator, key string, value any) {
		if _, ok := groups[op]; !ok {
			order = append(order, op)
		}
		groups[op] = append(groups[op], bson.E{Key: key, Value: value})
	}

	if !expires.IsZero() {
		add(session.OpSet, session.FieldExpires, expires)
	}

	for _, op := range ops {
		switch op.Op {
		case session.OpUnset:
			add(op.Op, op.Key, "")
		default:
			add(op.Op, op.Key, op.Value)
		}
	}

	update := make(bson.D, 0, len(order))
	for _, op := range order {
		update = append(update, bson.E{Key: string(op), Value: groups[op]})
	}
	return update
}

func toDocument(raw bson.M) (session.Document, error) {
	doc := make(session.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalize(v)
	}
	if v, ok := doc[session.FieldID]; ok {
		if _, ok := v.(bson.ObjectID); !ok {
			return nil, ErrUnexpectedID
		}
	}
	return doc, nil
}

// normalize turns driver types into the plain values the other stores produce.
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case bson.DateTime:
		return val.Time().UTC()
	case int32:
		return int64(val)
	default:
		return v
	}
}

// Ping checks that the collection's deployment answers. It backs readiness probes.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
