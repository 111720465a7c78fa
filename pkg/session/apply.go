package session

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ApplyMutation applies m to a copy of doc and returns the copy. Stores without
// native update operators call it while holding their own lock or transaction,
// so either every operation lands or none does.
func ApplyMutation(doc Document, m Mutation) (Document, error) {
	out := doc.Clone()
	if out == nil {
		out = Document{}
	}
	if !m.Expires.IsZero() {
		out[FieldExpires] = m.Expires
	}
	for _, op := range m.Ops {
		if err := applyOperation(out, op); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyOperation(doc Document, op Operation) error {
	current, exists := doc[op.Key]

	switch op.Op {
	case OpSet:
		doc[op.Key] = cloneValue(op.Value)

	case OpUnset:
		delete(doc, op.Key)

	case OpInc, OpMul:
		delta, ok := toNumber(op.Value)
		if !ok {
			return fmt.Errorf("%w: %s %q with %T", ErrOperatorTarget, op.Op, op.Key, op.Value)
		}
		base := number{}
		if exists {
			if base, ok = toNumber(current); !ok {
				return fmt.Errorf("%w: %s on non-numeric %q", ErrOperatorTarget, op.Op, op.Key)
			}
		}
		if op.Op == OpInc {
			doc[op.Key] = base.add(delta).value()
		} else {
			doc[op.Key] = base.mul(delta).value()
		}

	case OpMin, OpMax:
		if !exists {
			doc[op.Key] = cloneValue(op.Value)
			return nil
		}
		cmp, err := compareValues(op.Value, current)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrOperatorTarget, op.Op, op.Key, err)
		}
		if (op.Op == OpMin && cmp < 0) || (op.Op == OpMax && cmp > 0) {
			doc[op.Key] = cloneValue(op.Value)
		}

	case OpRename:
		to, _ := op.Value.(string)
		if !exists {
			return nil
		}
		delete(doc, op.Key)
		doc[to] = current

	case OpPush, OpAddToSet:
		list, err := arrayValue(current, exists, op)
		if err != nil {
			return err
		}
		if op.Op == OpAddToSet && containsValue(list, op.Value) {
			return nil
		}
		doc[op.Key] = append(list, cloneValue(op.Value))

	case OpPull:
		if !exists {
			return nil
		}
		list, err := arrayValue(current, exists, op)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			if !valuesEqual(item, op.Value) {
				kept = append(kept, item)
			}
		}
		doc[op.Key] = kept

	case OpPop:
		if !exists {
			return nil
		}
		list, err := arrayValue(current, exists, op)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		if n, _ := toNumber(op.Value); n.float() < 0 {
			doc[op.Key] = list[1:]
		} else {
			doc[op.Key] = list[:len(list)-1]
		}

	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidOperation, op.Op)
	}
	return nil
}

// arrayValue returns the field as []any, or an empty list when the field is missing.
func arrayValue(v any, exists bool, op Operation) ([]any, error) {
	if !exists || v == nil {
		return []any{}, nil
	}
	if list, ok := v.([]any); ok {
		return append([]any(nil), list...), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %s on non-array %q", ErrOperatorTarget, op.Op, op.Key)
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, nil
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na.float() == nb.float()
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := toTime(b); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings and times. Values of different kinds
// are not comparable.
func compareValues(a, b any) (int, error) {
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch fa, fb := na.float(), nb.float(); {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		}
		return 0, nil
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(sa, sb), nil
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return ta.Compare(tb), nil
	}
	return 0, fmt.Errorf("cannot compare %T", a)
}

// number keeps integer arithmetic exact until a float enters the expression.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func toNumber(v any) (number, bool) {
	switch val := v.(type) {
	case int:
		return number{i: int64(val)}, true
	case int8:
		return number{i: int64(val)}, true
	case int16:
		return number{i: int64(val)}, true
	case int32:
		return number{i: int64(val)}, true
	case int64:
		return number{i: val}, true
	case uint:
		return number{i: int64(val)}, true
	case uint8:
		return number{i: int64(val)}, true
	case uint16:
		return number{i: int64(val)}, true
	case uint32:
		return number{i: int64(val)}, true
	case float32:
		return number{f: float64(val), isFloat: true}, true
	case float64:
		return number{f: val, isFloat: true}, true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return number{i: n}, true
		}
		f, err := val.Float64()
		return number{f: f, isFloat: true}, err == nil
	default:
		return number{}, false
	}
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n number) value() any {
	if n.isFloat {
		return n.f
	}
	return n.i
}

func (n number) add(o number) number {
	if n.isFloat || o.isFloat {
		return number{f: n.float() + o.float(), isFloat: true}
	}
	return number{i: n.i + o.i}
}

func (n number) mul(o number) number {
	if n.isFloat || o.isFloat {
		return number{f: n.float() * o.float(), isFloat: true}
	}
	return number{i: n.i * o.i}
}
