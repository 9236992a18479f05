package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BurstThenDeny(t *testing.T) {
	l := NewMemoryLimiter(Config{Limit: 3, Window: time.Minute})
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := l.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, 20*time.Second)

	// otra clave no comparte bucket
	res, err = l.Allow(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// un token se repone cada Window/Limit
	now = now.Add(20 * time.Second)
	res, err = l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, 20, c.Limit)
	assert.Equal(t, time.Minute, c.Window)
}
