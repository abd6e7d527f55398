package playback

import (
	"context"
	"fmt"
	"time"
)

// startSmoothSeek interpolates the player position toward target over
// the given duration with an ease-out curve. Starting a new
// interpolation cancels the one in flight so two loops never converge
// to different targets.
func (c *Controller) startSmoothSeek(ctx context.Context, target float64, duration time.Duration) error {
	from, err := c.adapter.CurrentTime(ctx)
	if err != nil {
		return fmt.Errorf("read current time: %w", err)
	}

	c.mu.Lock()
	if c.seekCancel != nil {
		c.seekCancel()
	}
	seekCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.seekCancel = cancel
	c.mu.Unlock()

	go c.runSmoothSeek(seekCtx, from, target, duration)

	return nil
}

func (c *Controller) cancelSmoothSeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seekCancel != nil {
		c.seekCancel()
		c.seekCancel = nil
	}
}

// runSmoothSeek samples the ease-out curve at a fixed frequency. The
// deadline timer guarantees convergence to the exact target at
// duration plus a safety margin even if the sampling loop is starved.
func (c *Controller) runSmoothSeek(ctx context.Context, from, target float64, duration time.Duration) {
	ticker := c.clock.NewTicker(c.cfg.SeekSampleInterval)
	defer ticker.Stop()
	deadline := c.clock.NewTimer(duration + c.cfg.SeekSafetyMargin)
	defer deadline.Stop()

	start := c.clock.Now()

	finish := func() {
		if err := c.adapter.Seek(ctx, target); err != nil {
			c.logger.Warn("smooth seek final step failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadline.Chan():
			if ctx.Err() != nil {
				return
			}
			finish()
			return

		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			p := float64(c.clock.Since(start)) / float64(duration)
			if p >= 1 {
				finish()
				return
			}

			eased := 1 - (1-p)*(1-p)
			pos := from + (target-from)*eased
			if err := c.adapter.Seek(ctx, pos); err != nil {
				c.logger.Warn("smooth seek step failed", "error", err)
				return
			}
		}
	}
}
