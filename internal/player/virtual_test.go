package player

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualPositionAdvancesWhilePlaying(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v := NewVirtual(clock, 0)
	ctx := context.Background()

	require.NoError(t, v.Play(ctx))
	clock.Advance(10 * time.Second)

	pos, err := v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pos, 0.001)

	require.NoError(t, v.Pause(ctx))
	clock.Advance(time.Minute)

	pos, err = v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pos, 0.001, "position freezes while paused")
}

func TestVirtualPositionScalesWithRate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v := NewVirtual(clock, 0)
	ctx := context.Background()

	require.NoError(t, v.Play(ctx))
	require.NoError(t, v.SetPlaybackRate(ctx, 1.05))
	clock.Advance(100 * time.Second)

	pos, err := v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 105.0, pos, 0.001)

	rate, err := v.PlaybackRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.05, rate)
}

func TestVirtualPositionClampedToDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v := NewVirtual(clock, 30)
	ctx := context.Background()

	require.NoError(t, v.Play(ctx))
	clock.Advance(time.Minute)

	pos, err := v.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, pos)
}

func TestVirtualEventOrigins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	v := NewVirtual(clock, 0)
	ctx := context.Background()

	var events []Event
	unsub := v.OnEvent(func(ev Event) { events = append(events, ev) })
	defer unsub()

	v.UserPlay()
	require.NoError(t, v.Pause(ctx))
	v.UserSeek(12.5)

	require.Len(t, events, 3)
	assert.Equal(t, EventPlay, events[0].Kind)
	assert.Equal(t, OriginLocal, events[0].Origin)
	assert.Equal(t, EventPause, events[1].Kind)
	assert.Equal(t, OriginRemote, events[1].Origin)
	assert.Equal(t, EventSeek, events[2].Kind)
	assert.Equal(t, OriginLocal, events[2].Origin)
	assert.Equal(t, 12.5, events[2].Time)

	unsub()
	v.UserPause()
	assert.Len(t, events, 3, "unsubscribed observer receives nothing")
}
