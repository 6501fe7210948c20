package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatUpdater_Latest(t *testing.T) {
	su, err := NewStatUpdater(time.Hour)
	require.NoError(t, err)

	first := su.Latest()
	assert.False(t, first.SampledAt.IsZero())
	assert.Positive(t, first.Goroutines)

	// Cached until the next tick.
	assert.Equal(t, first, su.Latest())
}

func TestStatUpdater_RunAndStop(t *testing.T) {
	su, err := NewStatUpdater(10 * time.Millisecond)
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		su.Run()
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		su.mu.RLock()
		defer su.mu.RUnlock()
		return !su.latest.SampledAt.IsZero()
	}, time.Second, 5*time.Millisecond)

	su.Stop()
	su.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stat updater did not stop")
	}
}
