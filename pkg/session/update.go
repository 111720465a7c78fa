package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Update accumulates field commands for one store round trip.
// Validation errors are kept and returned by Exec before any I/O happens.
//
//	err := sess.Update().
//	    Set("user_id", uid).
//	    Unset("guest_cart").
//	    Inc("logins", 1).
//	    Exec(ctx)
type Update struct {
	sess    *Session
	ops     []Operation
	maxAge  time.Duration
	expires time.Time
	err     error
}

// Update starts a batched command on the session.
func (s *Session) Update() *Update {
	return &Update{sess: s}
}

func (u *Update) add(op Operation) *Update {
	if u.err != nil {
		return u
	}
	if err := op.validate(); err != nil {
		u.err = err
		return u
	}
	u.ops = append(u.ops, op)
	return u
}

// Set assigns value to key
func (u *Update) Set(key string, value any) *Update {
	return u.add(Operation{Op: OpSet, Key: key, Value: value})
}

// Unset removes key
func (u *Update) Unset(key string) *Update {
	return u.add(Operation{Op: OpUnset, Key: key})
}

// Inc adds by to the numeric value of key
func (u *Update) Inc(key string, by any) *Update {
	return u.add(Operation{Op: OpInc, Key: key, Value: by})
}

// Mul multiplies the numeric value of key
func (u *Update) Mul(key string, by any) *Update {
	return u.add(Operation{Op: OpMul, Key: key, Value: by})
}

// Min keeps the smaller of the current value and value
func (u *Update) Min(key string, value any) *Update {
	return u.add(Operation{Op: OpMin, Key: key, Value: value})
}

// Max keeps the larger of the current value and value
func (u *Update) Max(key string, value any) *Update {
	return u.add(Operation{Op: OpMax, Key: key, Value: value})
}

// Rename moves the value of key to newKey
func (u *Update) Rename(key, newKey string) *Update {
	return u.add(Operation{Op: OpRename, Key: key, Value: newKey})
}

// Push appends value to the list at key
func (u *Update) Push(key string, value any) *Update {
	return u.add(Operation{Op: OpPush, Key: key, Value: value})
}

// Pull removes every element equal to value from the list at key
func (u *Update) Pull(key string, value any) *Update {
	return u.add(Operation{Op: OpPull, Key: key, Value: value})
}

// AddToSet appends value to the list at key unless already present
func (u *Update) AddToSet(key string, value any) *Update {
	return u.add(Operation{Op: OpAddToSet, Key: key, Value: value})
}

// PopLast removes the last element of the list at key
func (u *Update) PopLast(key string) *Update {
	return u.add(Operation{Op: OpPop, Key: key, Value: 1})
}

// PopFirst removes the first element of the list at key
func (u *Update) PopFirst(key string) *Update {
	return u.add(Operation{Op: OpPop, Key: key, Value: -1})
}

// SetMaxAge changes the idle lifetime of this session. It accepts the same
// values as ParseMaxAge; the new value also drives this command's touch.
func (u *Update) SetMaxAge(v any) *Update {
	if u.err != nil {
		return u
	}
	d, err := ParseMaxAge(v)
	if err != nil {
		u.err = err
		return u
	}
	u.maxAge = d
	return u
}

// SetExpires sets an explicit expiry instead of now plus max age.
// It accepts a time.Time, or a duration value counted from now.
func (u *Update) SetExpires(v any) *Update {
	if u.err != nil {
		return u
	}
	now := u.sess.manager().now()
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	default:
		d, err := ParseMaxAge(v)
		if err != nil {
			u.err = fmt.Errorf("%w: %v", ErrInvalidExpires, err)
			return u
		}
		t = now.Add(d)
	}
	if t.Before(now) {
		u.err = fmt.Errorf("%w: %s is in the past", ErrInvalidExpires, t)
		return u
	}
	u.expires = t
	return u
}

// Exec sends the accumulated commands and the touch as one update, then
// reconciles the session with the stored document.
func (u *Update) Exec(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	return u.sess.manager().update(ctx, u.sess, u.ops, u.maxAge, u.expires)
}

// Err returns the first validation error recorded by the builder.
func (u *Update) Err() error {
	return u.err
}

func (s *Session) manager() *Manager {
	return s.state.manager
}

// Set assigns value to key in the store and in memory
func (s *Session) Set(ctx context.Context, key string, value any) error {
	return s.Update().Set(key, value).Exec(ctx)
}

// Unset removes key from the store and from memory
func (s *Session) Unset(ctx context.Context, key string) error {
	return s.Update().Unset(key).Exec(ctx)
}

// Inc atomically adds by to key
func (s *Session) Inc(ctx context.Context, key string, by any) error {
	return s.Update().Inc(key, by).Exec(ctx)
}

// Push atomically appends value to the list at key
func (s *Session) Push(ctx context.Context, key string, value any) error {
	return s.Update().Push(key, value).Exec(ctx)
}

// Pull atomically removes value from the list at key
func (s *Session) Pull(ctx context.Context, key string, value any) error {
	return s.Update().Pull(key, value).Exec(ctx)
}

// AddToSet atomically adds value to the set at key
func (s *Session) AddToSet(ctx context.Context, key string, value any) error {
	return s.Update().AddToSet(key, value).Exec(ctx)
}

// Rename atomically moves key to newKey
func (s *Session) Rename(ctx context.Context, key, newKey string) error {
	return s.Update().Rename(key, newKey).Exec(ctx)
}

// SetMaxAge changes the idle lifetime of the session
func (s *Session) SetMaxAge(ctx context.Context, v any) error {
	return s.Update().SetMaxAge(v).Exec(ctx)
}

// SetExpires sets an explicit expiry
func (s *Session) SetExpires(ctx context.Context, v any) error {
	return s.Update().SetExpires(v).Exec(ctx)
}

// Touch refreshes the expiry in the store and the cookie
func (s *Session) Touch(ctx context.Context) error {
	return s.Update().Exec(ctx)
}

// Reload replaces the in-memory state with the stored document
func (s *Session) Reload(ctx context.Context) error {
	return s.manager().reload(ctx, s)
}

// Destroy clears the cookie and removes the stored document. The record
// cannot be mutated afterwards; call Regenerate to start a new session.
func (s *Session) Destroy(ctx context.Context) error {
	if s.IsDestroyed() {
		return nil
	}
	return s.manager().destroy(ctx, s)
}

// Regenerate destroys the session and returns a new one bound to the same
// request. The new session shares no identifier or fields with the old one.
func (s *Session) Regenerate(ctx context.Context) (*Session, error) {
	if s.IsDestroyed() {
		fresh, err := s.manager().create(ctx, s.state)
		if err != nil {
			return nil, err
		}
		s.state.replace(fresh)
		return fresh, nil
	}
	return s.manager().regenerate(ctx, s)
}

// IsValidationError reports whether err was raised before any store call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
