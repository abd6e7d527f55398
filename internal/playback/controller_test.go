package playback

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coview/client/internal/player"
)

func newTestController(t *testing.T) (*Controller, *player.Virtual, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	adapter := player.NewVirtual(clock, 0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctl := NewController(adapter, DefaultConfig(), clock, logger)

	return ctl, adapter, clock
}

func TestCompensateForLatencyPlaying(t *testing.T) {
	for _, latencyMs := range []int64{20, 50, 150, 500, 1999} {
		ctl, _, clock := newTestController(t)

		timestamp := clock.Now().UnixMilli() - latencyMs
		got := ctl.CompensateForLatency(30.0, timestamp, true)
		assert.InDelta(t, 30.0+float64(latencyMs)/1000, got, 0.001, "latency %dms", latencyMs)
	}
}

func TestCompensateForLatencyPausedIsExact(t *testing.T) {
	ctl, _, clock := newTestController(t)

	timestamp := clock.Now().UnixMilli() - 750
	got := ctl.CompensateForLatency(30.0, timestamp, false)
	assert.Equal(t, 30.0, got, "paused positions are exact regardless of transit time")
}

func TestCompensateForLatencyBelowMinimum(t *testing.T) {
	ctl, _, clock := newTestController(t)

	timestamp := clock.Now().UnixMilli() - 5
	got := ctl.CompensateForLatency(30.0, timestamp, true)
	assert.Equal(t, 30.0, got, "latency under the minimum threshold is not compensated")
}

func TestClockAheadFeedsOffsetEstimator(t *testing.T) {
	ctl, _, clock := newTestController(t)

	// Remote clock runs 500ms ahead of ours: raw latency is strongly
	// negative.
	ahead := clock.Now().UnixMilli() + 500
	got := ctl.CompensateForLatency(30.0, ahead, true)
	assert.InDelta(t, 30.0, got, 0.3, "negative latency must not produce a backwards compensation")
	assert.Equal(t, 1, ctl.offsets.Len())
}

func TestExcessiveLatencyTreatedAsDrift(t *testing.T) {
	ctl, _, clock := newTestController(t)

	// 10s of apparent latency cannot be real transit time.
	timestamp := clock.Now().UnixMilli() - 10_000
	ctl.CompensateForLatency(30.0, timestamp, true)

	assert.Equal(t, 1, ctl.offsets.Len())
	assert.InDelta(t, 9800, ctl.offsets.Median(), 0.001, "offset sample is raw minus assumed baseline")
}

func decide(t *testing.T, local, target float64) SyncAction {
	t.Helper()

	ctl, _, clock := newTestController(t)
	// Timestamp equal to now: zero latency, no compensation.
	return ctl.Decide(local, target, clock.Now().UnixMilli(), true)
}

func TestDecideDeadBand(t *testing.T) {
	action := decide(t, 10.0, 10.02)
	assert.Equal(t, ActionNone, action.Kind)
}

func TestDecideMicroAdjust(t *testing.T) {
	action := decide(t, 10.0, 10.2)
	require.Equal(t, ActionAdjustSpeed, action.Kind)
	assert.Greater(t, action.Rate, 1.0, "behind the target means speed up")
	assert.LessOrEqual(t, action.Rate, 1.05)
	assert.InDelta(t, 0.05, action.Rate-1, 0.05)
}

func TestDecideCorrectionAdjust(t *testing.T) {
	action := decide(t, 10.0, 10.5)
	require.Equal(t, ActionAdjustSpeed, action.Kind)
	assert.Greater(t, action.Rate, 1.0)
	assert.LessOrEqual(t, action.Rate, 1.1)
}

func TestDecideSmoothSeek(t *testing.T) {
	action := decide(t, 10.0, 13.0)
	require.Equal(t, ActionSmoothSeek, action.Kind)
	assert.InDelta(t, 13.0, action.Target, 0.001)
	assert.LessOrEqual(t, action.Duration, 400*time.Millisecond)
}

func TestDecideHardSeek(t *testing.T) {
	action := decide(t, 10.0, 20.0)
	require.Equal(t, ActionHardSeek, action.Kind)
	assert.InDelta(t, 20.0, action.Target, 0.001)
}

func TestDecideSignConvention(t *testing.T) {
	ahead := decide(t, 10.0, 10.2)
	behind := decide(t, 10.2, 10.0)

	require.Equal(t, ActionAdjustSpeed, ahead.Kind)
	require.Equal(t, ActionAdjustSpeed, behind.Kind)
	assert.Greater(t, ahead.Rate, 1.0, "target ahead of local: speed up")
	assert.Less(t, behind.Rate, 1.0, "target behind local: slow down")
}

func TestDecideMicroRateBounds(t *testing.T) {
	// Sweep the micro band; |rate-1| must stay within 0.05.
	for _, driftMs := range []float64{30, 60, 120, 200, 299} {
		action := decide(t, 10.0, 10.0+driftMs/1000)
		require.Equal(t, ActionAdjustSpeed, action.Kind, "drift %vms", driftMs)
		assert.LessOrEqual(t, action.Rate-1, 0.05, "drift %vms", driftMs)
		assert.GreaterOrEqual(t, action.Rate-1, 0.0, "drift %vms", driftMs)
	}
}

func TestDecidePausedDrift(t *testing.T) {
	ctl, _, clock := newTestController(t)
	now := clock.Now().UnixMilli()

	small := ctl.Decide(10.0, 10.3, now, false)
	assert.Equal(t, ActionNone, small.Kind, "paused drift under the threshold is left alone")

	large := ctl.Decide(10.0, 11.0, now, false)
	require.Equal(t, ActionHardSeek, large.Kind, "paused positions are corrected exactly")
	assert.Equal(t, 11.0, large.Target)
}

func TestSpeedAdjustEpisodeResets(t *testing.T) {
	ctl, adapter, clock := newTestController(t)
	ctx := context.Background()

	require.NoError(t, adapter.SetPlaybackRate(ctx, 1.25))

	require.NoError(t, ctl.Apply(ctx, AdjustSpeed(1.05)))
	rate, _ := adapter.PlaybackRate(ctx)
	assert.Equal(t, 1.05, rate)

	// A second adjustment within the window supersedes the pending
	// reset but keeps the original episode rate.
	clock.Advance(time.Second)
	require.NoError(t, ctl.Apply(ctx, AdjustSpeed(0.97)))

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		r, _ := adapter.PlaybackRate(ctx)
		return r == 1.25
	}, time.Second, 5*time.Millisecond, "rate must reset to the pre-episode value")
}

func TestExplicitSpeedReset(t *testing.T) {
	ctl, adapter, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctl.Apply(ctx, AdjustSpeed(1.08)))
	require.NoError(t, ctl.ResetSpeed(ctx))

	rate, _ := adapter.PlaybackRate(ctx)
	assert.Equal(t, 1.0, rate)

	// Idempotent.
	require.NoError(t, ctl.ResetSpeed(ctx))
}

func TestHardSeekApplies(t *testing.T) {
	ctl, adapter, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctl.Apply(ctx, HardSeek(42.0)))

	pos, _ := adapter.CurrentTime(ctx)
	assert.Equal(t, 42.0, pos)
}
