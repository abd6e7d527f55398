// Package playback turns remote playback reports into local
// corrections: imperceptible speed nudges for small drift, smooth
// interpolated seeks for medium drift, hard seeks past that.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coview/client/internal/player"
)

const (
	offsetWindowSize  = 10
	latencyWindowSize = 20
)

type Config struct {
	// Latency compensation bounds, milliseconds.
	MinCompensationMs float64
	MaxCompensationMs float64

	// A raw latency below this is a remote clock running ahead of
	// ours, milliseconds (negative).
	ClockAheadThresholdMs float64
	// Baseline latency assumed when a sample exceeds the ceiling and
	// is reclassified as clock drift, milliseconds.
	AssumedBaselineMs float64

	// Drift bands, milliseconds.
	DeadBandMs      float64
	MicroBandMs     float64
	SmoothBandMs    float64
	HardBandMs      float64
	PausedDriftMs   float64

	// Speed adjustment.
	MicroFactor      float64
	MicroMinRate     float64
	MicroMaxRate     float64
	CorrectionFactor float64
	MinRate          float64
	MaxRate          float64
	SpeedResetAfter  time.Duration

	// Smooth seek.
	SmoothSeekMaxDuration time.Duration
	SeekSampleInterval    time.Duration
	SeekSafetyMargin      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinCompensationMs:     10,
		MaxCompensationMs:     2000,
		ClockAheadThresholdMs: -100,
		AssumedBaselineMs:     200,
		DeadBandMs:            30,
		MicroBandMs:           300,
		SmoothBandMs:          1500,
		HardBandMs:            5000,
		PausedDriftMs:         500,
		MicroFactor:           0.15,
		MicroMinRate:          0.95,
		MicroMaxRate:          1.05,
		CorrectionFactor:      0.4,
		MinRate:               0.9,
		MaxRate:               1.1,
		SpeedResetAfter:       2 * time.Second,
		SmoothSeekMaxDuration: 400 * time.Millisecond,
		SeekSampleInterval:    16 * time.Millisecond,
		SeekSafetyMargin:      100 * time.Millisecond,
	}
}

// Controller holds the rolling clock-offset and latency windows for
// one player adapter. One controller per adapter; concurrent callers
// are serialized internally, the decision itself is a pure function of
// its inputs plus the windows.
type Controller struct {
	cfg     Config
	clock   clockwork.Clock
	logger  *slog.Logger
	adapter player.Adapter

	mu        sync.Mutex
	offsets   *window
	latencies *window

	episodeActive bool
	episodeRate   float64
	resetTimer    clockwork.Timer

	seekCancel context.CancelFunc
}

func NewController(adapter player.Adapter, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		adapter:   adapter,
		offsets:   newWindow(offsetWindowSize),
		latencies: newWindow(latencyWindowSize),
	}
}

// CompensateForLatency converts a remote-reported target position into
// the position we should be at now, accounting for one-way transit
// time and clock skew. Paused positions are exact regardless of
// transit time and pass through untouched.
func (c *Controller) CompensateForLatency(target float64, remoteTimestampMs int64, playing bool) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	latencyMs := c.adjustedLatencyLocked(remoteTimestampMs)
	if !playing {
		return target
	}

	if latencyMs <= c.cfg.MinCompensationMs {
		return target
	}

	return target + latencyMs/1000
}

// adjustedLatencyLocked feeds the raw observation into the estimator
// windows and returns the mean adjusted latency in milliseconds.
func (c *Controller) adjustedLatencyLocked(remoteTimestampMs int64) float64 {
	raw := float64(c.clock.Now().UnixMilli() - remoteTimestampMs)

	switch {
	case raw < c.cfg.ClockAheadThresholdMs:
		// Remote clock is ahead of ours.
		c.offsets.Add(raw)
	case raw > c.cfg.MaxCompensationMs:
		// Too large to be real transit time, treat as clock drift
		// over an assumed baseline latency.
		c.offsets.Add(raw - c.cfg.AssumedBaselineMs)
	}

	adjusted := raw - c.offsets.Median()
	adjusted = math.Max(0, math.Min(adjusted, c.cfg.MaxCompensationMs))

	c.latencies.Add(adjusted)

	return c.latencies.Mean()
}

// Decide classifies the drift between the compensated remote target
// and the local position. localTime and target are seconds,
// remoteTimestampMs is the sender's wall clock.
func (c *Controller) Decide(localTime, target float64, remoteTimestampMs int64, playing bool) SyncAction {
	compensated := c.CompensateForLatency(target, remoteTimestampMs, playing)
	drift := compensated - localTime
	absDriftMs := math.Abs(drift) * 1000

	if !playing {
		if absDriftMs > c.cfg.PausedDriftMs {
			return HardSeek(target)
		}
		return None()
	}

	switch {
	case absDriftMs < c.cfg.DeadBandMs:
		return None()

	case absDriftMs < c.cfg.MicroBandMs:
		rate := clamp(1+drift*c.cfg.MicroFactor, c.cfg.MicroMinRate, c.cfg.MicroMaxRate)
		return AdjustSpeed(rate)

	case absDriftMs < c.cfg.SmoothBandMs:
		rate := clamp(1+drift*c.cfg.CorrectionFactor, c.cfg.MinRate, c.cfg.MaxRate)
		return AdjustSpeed(rate)

	case absDriftMs < c.cfg.HardBandMs:
		duration := time.Duration(absDriftMs/4) * time.Millisecond
		if duration > c.cfg.SmoothSeekMaxDuration {
			duration = c.cfg.SmoothSeekMaxDuration
		}
		return SmoothSeek(compensated, duration)

	default:
		return HardSeek(compensated)
	}
}

// Apply drives the player adapter according to the action.
func (c *Controller) Apply(ctx context.Context, action SyncAction) error {
	switch action.Kind {
	case ActionNone:
		return nil

	case ActionAdjustSpeed:
		return c.adjustSpeed(ctx, action.Rate)

	case ActionSmoothSeek:
		return c.startSmoothSeek(ctx, action.Target, action.Duration)

	case ActionHardSeek:
		c.cancelSmoothSeek()
		if err := c.adapter.Seek(ctx, action.Target); err != nil {
			return fmt.Errorf("hard seek: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown sync action kind %d", action.Kind)
	}
}

// adjustSpeed records the pre-adjustment rate once per episode and
// schedules a reset back to it. A newer adjustment supersedes the
// pending reset.
func (c *Controller) adjustSpeed(ctx context.Context, rate float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.episodeActive {
		orig, err := c.adapter.PlaybackRate(ctx)
		if err != nil {
			return fmt.Errorf("read playback rate: %w", err)
		}
		c.episodeRate = orig
		c.episodeActive = true
	}

	if err := c.adapter.SetPlaybackRate(ctx, rate); err != nil {
		return fmt.Errorf("set playback rate: %w", err)
	}

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = c.clock.AfterFunc(c.cfg.SpeedResetAfter, func() {
		if err := c.ResetSpeed(context.Background()); err != nil {
			c.logger.Warn("speed reset failed", "error", err)
		}
	})

	return nil
}

// ResetSpeed restores the rate recorded at the start of the current
// adjustment episode. Idempotent; also called explicitly on pause.
func (c *Controller) ResetSpeed(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.episodeActive {
		return nil
	}

	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.episodeActive = false

	if err := c.adapter.SetPlaybackRate(ctx, c.episodeRate); err != nil {
		return fmt.Errorf("restore playback rate: %w", err)
	}

	return nil
}

// Stop cancels any in-flight smooth seek and pending speed reset.
func (c *Controller) Stop() {
	c.cancelSmoothSeek()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.episodeActive = false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
