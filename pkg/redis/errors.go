package redis

import (
	"errors"

	"github.com/dmitrymomot/atomicsession/pkg/session"
)

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")

	// ErrTxContention is returned when every WATCH attempt of an Update lost
	// the race against another writer of the same session.
	ErrTxContention = errors.New("redis: session update retries exhausted")
	// ErrDuplicateID is returned by Insert when the key is already taken.
	ErrDuplicateID = session.ErrDuplicateID
)
