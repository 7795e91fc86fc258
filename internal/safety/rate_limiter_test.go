package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToCapacity(t *testing.T) {
	rl := NewRateLimiter("test", 3, 1)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_WaitHonorsContextCancellation(t *testing.T) {
	rl := NewRateLimiter("test", 1, 1)
	assert.True(t, rl.Allow()) // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_WaitSucceedsWithTokens(t *testing.T) {
	rl := NewRateLimiter("test", 2, 1)

	err := rl.Wait(context.Background())
	assert.NoError(t, err)
}
