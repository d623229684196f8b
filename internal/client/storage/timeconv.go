package storage

import "time"

// UnixMilli converts t to milliseconds since the Unix epoch.
// The zero time maps to 0 so that "never set" sorts first.
func UnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMilli is the inverse of UnixMilli. Results are in UTC.
func FromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// CeilMilli rounds t up to a whole millisecond. A time stored with
// millisecond precision after CeilMilli is never earlier than t.
func CeilMilli(t time.Time) time.Time {
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}
