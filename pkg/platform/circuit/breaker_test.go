package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("card_network")
	assert.Equal(t, "card_network", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerTransitions(t *testing.T) {
	t.Run("opens on the threshold failure only", func(t *testing.T) {
		b := New("regulatory", WithFailureThreshold(3))
		for range 2 {
			open, change := b.RecordFailure()
			require.False(t, open)
			require.False(t, change.Opened)
		}
		open, change := b.RecordFailure()
		assert.True(t, open)
		assert.True(t, change.Opened)

		open, change = b.RecordFailure()
		assert.True(t, open)
		assert.False(t, change.Opened, "already open")
	})

	t.Run("success clears the failure streak", func(t *testing.T) {
		b := New("merchant", WithFailureThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("closes after consecutive successes", func(t *testing.T) {
		b := New("merchant", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		closed, change := b.RecordSuccess()
		assert.False(t, closed)
		assert.False(t, change.Closed)

		b.RecordFailure()
		closed, _ = b.RecordSuccess()
		assert.False(t, closed, "failure restarts the success streak")

		closed, change = b.RecordSuccess()
		assert.True(t, closed)
		assert.True(t, change.Closed)
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("reset closes immediately", func(t *testing.T) {
		b := New("merchant", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		assert.False(t, b.IsOpen())
	})
}

func TestBreakerAllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("rules", WithFailureThreshold(1), WithCooldown(5*time.Second), WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(5 * time.Second)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "probe window restarts")
}
