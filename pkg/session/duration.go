package session

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365*day + 6*time.Hour
)

// humanDuration matches values such as "14 days", "2 hrs", "1.5h" or "300".
var humanDuration = regexp.MustCompile(`(?i)^(\d*\.?\d+)\s*(milliseconds?|msecs?|ms|seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|years?|yrs?|y)?$`)

var unitSizes = map[string]time.Duration{
	"ms": time.Millisecond, "msec": time.Millisecond, "msecs": time.Millisecond,
	"millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
	"w": week, "week": week, "weeks": week,
	"y": year, "yr": year, "yrs": year, "year": year, "years": year,
	"": time.Millisecond,
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// ParseMaxAge converts a max-age value into a duration.
// Accepted inputs are time.Duration, integer or float milliseconds, and strings
// in either Go duration syntax ("90m", "1h30m") or human form ("14 days").
// The result must be positive.
func ParseMaxAge(v any) (time.Duration, error) {
	var d time.Duration
	switch val := v.(type) {
	case time.Duration:
		d = val
	case int:
		return ParseMaxAge(int64(val))
	case int32:
		return ParseMaxAge(int64(val))
	case int64:
		if val > maxMillis {
			return 0, fmt.Errorf("%w: %d ms overflows", ErrInvalidMaxAge, val)
		}
		d = time.Duration(val) * time.Millisecond
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidMaxAge, val)
		}
		if val > float64(maxMillis) {
			return 0, fmt.Errorf("%w: %v ms overflows", ErrInvalidMaxAge, val)
		}
		d = time.Duration(val * float64(time.Millisecond))
	case string:
		parsed, err := parseDurationString(val)
		if err != nil {
			return 0, err
		}
		d = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidMaxAge, v)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %v must be positive", ErrInvalidMaxAge, v)
	}
	return d, nil
}

func parseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidMaxAge)
	}

	if m := humanDuration.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMaxAge, s)
		}
		unit := unitSizes[strings.ToLower(m[2])]
		if n*float64(unit) >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidMaxAge, s)
		}
		return time.Duration(n * float64(unit)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxAge, s)
	}
	return d, nil
}
