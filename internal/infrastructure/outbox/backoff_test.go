package outbox

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{7, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff(tt.attempts, time.Minute), "attempts=%d", tt.attempts)
	}
}

func TestJitterBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		j := jitter(r, 200*time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 200*time.Millisecond)
	}
	assert.Zero(t, jitter(nil, time.Second))
	assert.Zero(t, jitter(r, 0))
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	// "é" is two bytes; cutting after its first byte must drop it
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Empty(t, truncate("abc", 0))
}
