package session

import (
	"fmt"
	"strings"
	"time"
)

// Operator names a field-level update. Names mirror the MongoDB update
// operators so native stores can pass them through.
type Operator string

const (
	OpSet      Operator = "$set"
	OpUnset    Operator = "$unset"
	OpInc      Operator = "$inc"
	OpMul      Operator = "$mul"
	OpMin      Operator = "$min"
	OpMax      Operator = "$max"
	OpRename   Operator = "$rename"
	OpPush     Operator = "$push"
	OpPull     Operator = "$pull"
	OpAddToSet Operator = "$addToSet"
	OpPop      Operator = "$pop"
)

// Operation is a single field command. For OpRename Value holds the new key,
// for OpPop it holds 1 (remove last) or -1 (remove first).
type Operation struct {
	Op    Operator
	Key   string
	Value any
}

// Paths returns the document paths the operation writes.
func (o Operation) Paths() []string {
	if o.Op == OpRename {
		if to, ok := o.Value.(string); ok {
			return []string{o.Key, to}
		}
	}
	return []string{o.Key}
}

// Mutation is what a store applies in one Update call: a touch of the
// expires field followed by the operations, in order.
type Mutation struct {
	Expires time.Time
	Ops     []Operation
}

// reservedKeys can never be written through user commands.
var reservedKeys = map[string]struct{}{
	FieldID:      {},
	"id":         {},
	FieldMaxAge:  {},
	FieldExpires: {},
	"expiresAt":  {},
	FieldCreated: {},
	"createdAt":  {},
	FieldSecret:  {},
}

// IsReservedKey reports whether key is owned by the session record itself.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// ValidateKey checks that key can hold a user value.
func ValidateKey(key string) error {
	switch {
	case key == "" || strings.HasPrefix(key, "$"):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.Contains(key, "."):
		return fmt.Errorf("%w: %q", ErrNestedKey, key)
	case IsReservedKey(key):
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	return nil
}

func (o Operation) validate() error {
	if err := ValidateKey(o.Key); err != nil {
		return err
	}
	switch o.Op {
	case OpSet, OpUnset, OpPush, OpPull, OpAddToSet:
		return nil
	case OpInc, OpMul:
		if _, ok := toNumber(o.Value); !ok {
			return fmt.Errorf("%w: %s %q needs a number, got %T", ErrInvalidOperation, o.Op, o.Key, o.Value)
		}
		return nil
	case OpMin, OpMax:
		if o.Value == nil {
			return fmt.Errorf("%w: %s %q needs a value", ErrInvalidOperation, o.Op, o.Key)
		}
		return nil
	case OpRename:
		to, ok := o.Value.(string)
		if !ok {
			return fmt.Errorf("%w: rename %q needs a string target", ErrInvalidOperation, o.Key)
		}
		if to == o.Key {
			return fmt.Errorf("%w: rename %q onto itself", ErrInvalidOperation, o.Key)
		}
		return ValidateKey(to)
	case OpPop:
		if n, ok := toNumber(o.Value); !ok || (n.float() != 1 && n.float() != -1) {
			return fmt.Errorf("%w: pop %q needs 1 or -1", ErrInvalidOperation, o.Key)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidOperation, o.Op)
	}
}
