package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffCapsAtMax(t *testing.T) {
	for _, retries := range []int{6, 30, 62, 63, 64, 100, 1 << 20} {
		wait := backoff(retries, 60)
		assert.GreaterOrEqual(t, wait, 60*time.Second, "retries=%d", retries)
		assert.Less(t, wait, 61*time.Second, "retries=%d", retries)
	}
}

func TestBackoffGrowsFromOneSecond(t *testing.T) {
	for retries, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		wait := backoff(retries, 60)
		assert.GreaterOrEqual(t, wait, base, "retries=%d", retries)
		assert.Less(t, wait, base+time.Second, "retries=%d", retries)
	}
}
