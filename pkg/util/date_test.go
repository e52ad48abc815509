package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionDate(t *testing.T) {
	// 2024-03-15 13:00 in Sao Paulo (UTC-3) is 16:00 UTC
	ts := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), SessionDate(ts, -3*3600))

	// 01:30 UTC is still the previous day in New York
	ts = time.Date(2024, 3, 16, 1, 30, 0, 0, time.UTC).Unix()
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), SessionDate(ts, -4*3600))
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), SessionDate(ts, 0))
}

func TestUnixMilli(t *testing.T) {
	assert.True(t, UnixMilli(0).IsZero())
	assert.Equal(t, time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC), UnixMilli(time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC).UnixMilli()))
}
