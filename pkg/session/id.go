package session

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ID is the session identifier. It uses the store's native 12-byte ObjectID,
// hex encoded in cookies.
type ID = bson.ObjectID

// idLength is the length of a hex encoded identifier.
const idLength = 24

// IsValidID reports whether s is exactly 24 hexadecimal characters.
func IsValidID(s string) bool {
	if len(s) != idLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NewID returns a new globally unique identifier.
func NewID() ID {
	return bson.NewObjectID()
}

// ParseID validates and decodes a hex identifier.
func ParseID(s string) (ID, error) {
	if !IsValidID(s) {
		return bson.NilObjectID, ErrInvalidID
	}
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.NilObjectID, ErrInvalidID
	}
	return id, nil
}
