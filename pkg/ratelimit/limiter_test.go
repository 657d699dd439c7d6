package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowKeyBucketsByWindowStart(t *testing.T) {
	l := NewLimiter(nil, "login", 5, time.Minute)
	base := time.Date(2026, 10, 16, 9, 30, 10, 0, time.UTC)

	k1, reset1 := l.windowKey("10.0.0.1", base)
	k2, reset2 := l.windowKey("10.0.0.1", base.Add(40*time.Second))
	k3, _ := l.windowKey("10.0.0.1", base.Add(55*time.Second))

	assert.Equal(t, k1, k2)
	assert.Equal(t, reset1, reset2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 31, 0, 0, time.UTC), reset1)
	assert.Contains(t, k1, "login:10.0.0.1:")
}

func TestNewLimiterDefaults(t *testing.T) {
	l := NewLimiter(nil, "login", 0, 0)
	assert.Equal(t, 10, l.limit)
	assert.Equal(t, time.Minute, l.window)
}
