package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Reserved document fields.
const (
	FieldID      = "_id"
	FieldMaxAge  = "maxAge"
	FieldExpires = "expires"
	FieldCreated = "created"
	FieldSecret  = "secret"
)

// Document is the stored form of a session: the reserved fields plus user fields.
type Document map[string]any

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

// EncodeJSON serializes a document for stores that keep JSON blobs.
// The identifier is written as its hex form.
func EncodeJSON(d Document) ([]byte, error) {
	out := maps.Clone(d)
	if id, ok := out[FieldID].(ID); ok {
		out[FieldID] = id.Hex()
	}
	return json.Marshal(out)
}

// DecodeJSON parses a document produced by EncodeJSON. Integral numbers decode
// as int64, the identifier as ID and the reserved timestamps as time.Time.
func DecodeJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}

	doc := Document(normalizeJSON(raw).(map[string]any))
	if s, ok := doc[FieldID].(string); ok {
		id, err := ParseID(s)
		if err != nil {
			return nil, err
		}
		doc[FieldID] = id
	}
	for _, key := range []string{FieldExpires, FieldCreated} {
		if t, ok := toTime(doc[key]); ok {
			doc[key] = t
		}
	}
	return doc, nil
}

func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeJSON(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeJSON(item)
		}
		return val
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(val)).(map[string]any))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// toTime accepts the time representations produced by the supported stores.
func toTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case bson.DateTime:
		return val.Time(), true
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// toID accepts an ObjectID or its hex form.
func toID(v any) (ID, bool) {
	switch val := v.(type) {
	case ID:
		return val, !val.IsZero()
	case string:
		id, err := ParseID(val)
		return id, err == nil
	default:
		return bson.NilObjectID, false
	}
}
