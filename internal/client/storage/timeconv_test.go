package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnixMilli_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 5, 17, 8, 0, 0, 250*int(time.Millisecond), time.UTC)

	ms := UnixMilli(ts)
	assert.Equal(t, ts.UnixMilli(), ms)
	assert.True(t, ts.Equal(FromUnixMilli(ms)))
}

func TestUnixMilli_Zero(t *testing.T) {
	assert.Equal(t, int64(0), UnixMilli(time.Time{}))
	assert.True(t, FromUnixMilli(0).IsZero())
}

func TestCeilMilli(t *testing.T) {
	base := time.Date(2026, 5, 17, 8, 0, 0, 0, time.UTC)

	assert.True(t, base.Equal(CeilMilli(base)))
	assert.True(t, base.Add(time.Millisecond).Equal(CeilMilli(base.Add(time.Microsecond))))
	assert.True(t, base.Add(time.Millisecond).Equal(CeilMilli(base.Add(999*time.Microsecond))))

	// после сохранения с точностью до мс время не становится раньше исходного
	ts := base.Add(1500 * time.Microsecond)
	stored := FromUnixMilli(UnixMilli(CeilMilli(ts)))
	assert.False(t, stored.Before(ts))
}
