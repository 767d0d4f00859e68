package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAccelerated(t *testing.T) {
	clock := NewClock(epoch, time.Minute, false)
	var seen []time.Time
	clock.AddListener(func(now time.Time) error {
		seen = append(seen, now)
		return nil
	})
	require.NoError(t, clock.Run(context.Background(), time.Hour))
	require.Len(t, seen, 60)
	assert.True(t, seen[0].Equal(epoch.Add(time.Minute)))
	assert.True(t, clock.Now().Equal(epoch.Add(time.Hour)))
}

func TestClockStops(t *testing.T) {
	boom := errors.New("boom")
	clock := NewClock(epoch, time.Second, false)
	clock.AddListener(func(now time.Time) error {
		if now.Sub(epoch) >= 3*time.Second {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, clock.Run(context.Background(), 0), boom)
	assert.True(t, clock.Now().Equal(epoch.Add(3*time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := NewClock(epoch, time.Millisecond, true)
	assert.ErrorIs(t, rt.Run(ctx, time.Hour), context.Canceled)
	assert.Panics(t, func() { NewClock(epoch, 0, false) })
}
