package celvalue

import (
	"cel/internal/celerrors"
	"strconv"
	"time"
)

// Duration is a signed nanosecond-precision interval, CEL's `duration` kind.
type Duration int64

// Timestamp is an instant with a fixed UTC offset, CEL's `timestamp` kind,
// bounded to [0001-01-01T00:00:00Z, 9999-12-31T23:59:59.999999999Z] (§3).
type Timestamp struct {
	t time.Time
}

// minTimestamp and maxTimestamp are the closed bounds from §3.
var (
	minTimestamp = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTimestamp = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)
	// UnixEpoch is the zero value used by OptionalOfNonZeroValue's is_zero
	// predicate for timestamps.
	UnixEpoch = TimestampFromTime(time.Unix(0, 0).UTC())
)

// TimestampFromTime wraps a time.Time as a Timestamp without bounds
// checking; callers constructing from a trusted source (e.g. time.Now) may
// use this directly.
func TimestampFromTime(t time.Time) Timestamp { return Timestamp{t: t.UTC()} }

// ParseTimestamp parses an RFC3339 string into a bounds-checked Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, celerrors.Conversion("timestamp", s)
	}
	ts := TimestampFromTime(t)
	if !ts.inBounds() {
		return Timestamp{}, celerrors.Overflow("timestamp", s, "")
	}
	return ts, nil
}

func (t Timestamp) inBounds() bool {
	return !t.t.Before(minTimestamp) && !t.t.After(maxTimestamp)
}

// Time exposes the wrapped time.Time.
func (t Timestamp) Time() time.Time { return t.t }

// Equal reports whether t and o denote the same instant.
func (t Timestamp) Equal(o Timestamp) bool { return t.t.Equal(o.t) }

// Compare returns -1, 0, or 1 as t is before, equal to, or after o.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.t.Before(o.t):
		return -1
	case t.t.After(o.t):
		return 1
	default:
		return 0
	}
}

// String renders t as RFC3339 with nanosecond precision when non-zero,
// matching CEL's string(timestamp) coercion.
func (t Timestamp) String() string {
	if t.t.Nanosecond() == 0 {
		return t.t.Format(time.RFC3339)
	}
	return t.t.Format(time.RFC3339Nano)
}

// AddDuration adds d to t, failing with Overflow if the result leaves the
// spec-bounded timestamp range (§3, §4.1).
func (t Timestamp) AddDuration(d Duration) (Timestamp, error) {
	next := Timestamp{t: t.t.Add(time.Duration(d))}
	if !next.inBounds() {
		return Timestamp{}, celerrors.Overflow("+", t.String(), d.String())
	}
	return next, nil
}

// SubDuration subtracts d from t.
func (t Timestamp) SubDuration(d Duration) (Timestamp, error) {
	return t.AddDuration(-d)
}

// SubTimestamp computes t - o as a Duration, failing with Overflow if the
// nanosecond delta cannot be represented as an int64.
func (t Timestamp) SubTimestamp(o Timestamp) (Duration, error) {
	delta := t.t.Sub(o.t)
	if !o.t.Add(delta).Equal(t.t) {
		return 0, celerrors.Overflow("-", t.String(), o.String())
	}
	return Duration(delta), nil
}

// String renders d Go-style (e.g. "1h2m3s"), CEL's string(duration) coercion.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDuration parses a Go-style duration string ("1h2m3s", "500ms", ...).
func ParseDuration(s string) (Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, celerrors.Conversion("duration", s)
	}
	return Duration(d), nil
}

// getFullYear, getMonth, etc. back the timestamp/duration accessor methods
// supplemented from cel-rust's functions/time.rs (SPEC_FULL.md).

func (t Timestamp) GetFullYear() int64     { return int64(t.t.Year()) }
func (t Timestamp) GetMonth() int64        { return int64(t.t.Month()) - 1 }
func (t Timestamp) GetDayOfMonth() int64   { return int64(t.t.Day()) - 1 }
func (t Timestamp) GetDate() int64         { return int64(t.t.Day()) }
func (t Timestamp) GetDayOfWeek() int64    { return int64(t.t.Weekday()) }
func (t Timestamp) GetHours() int64        { return int64(t.t.Hour()) }
func (t Timestamp) GetMinutes() int64      { return int64(t.t.Minute()) }
func (t Timestamp) GetSeconds() int64      { return int64(t.t.Second()) }
func (t Timestamp) GetMilliseconds() int64 { return int64(t.t.Nanosecond() / 1e6) }

func (d Duration) GetHours() int64        { return int64(time.Duration(d) / time.Hour) }
func (d Duration) GetMinutes() int64      { return int64(time.Duration(d) / time.Minute) }
func (d Duration) GetSeconds() int64      { return int64(time.Duration(d) / time.Second) }
func (d Duration) GetMilliseconds() int64 { return int64(time.Duration(d) / time.Millisecond) }

// FormatNumeric renders numeric primitives for the string() coercion (§4.1),
// using strconv directly rather than fmt's default verbs to match CEL's
// canonical formatting (e.g. no trailing decimal truncation surprises).
func FormatNumeric(v Value) (string, error) {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindUint:
		return strconv.FormatUint(v.u, 10), nil
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	default:
		return "", celerrors.Conversion("string", v.TypeName())
	}
}
