package playback

import (
	"fmt"
	"time"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionAdjustSpeed
	ActionSmoothSeek
	ActionHardSeek
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionAdjustSpeed:
		return "adjust_speed"
	case ActionSmoothSeek:
		return "smooth_seek"
	case ActionHardSeek:
		return "hard_seek"
	default:
		return "unknown"
	}
}

// SyncAction is the outcome of a single sync decision. Only the fields
// of the active kind are meaningful.
type SyncAction struct {
	Kind     ActionKind
	Rate     float64
	Target   float64
	Duration time.Duration
}

func None() SyncAction {
	return SyncAction{Kind: ActionNone}
}

func AdjustSpeed(rate float64) SyncAction {
	return SyncAction{Kind: ActionAdjustSpeed, Rate: rate}
}

func SmoothSeek(target float64, duration time.Duration) SyncAction {
	return SyncAction{Kind: ActionSmoothSeek, Target: target, Duration: duration}
}

func HardSeek(target float64) SyncAction {
	return SyncAction{Kind: ActionHardSeek, Target: target}
}

func (a SyncAction) String() string {
	switch a.Kind {
	case ActionAdjustSpeed:
		return fmt.Sprintf("adjust_speed(%.3f)", a.Rate)
	case ActionSmoothSeek:
		return fmt.Sprintf("smooth_seek(%.3f, %s)", a.Target, a.Duration)
	case ActionHardSeek:
		return fmt.Sprintf("hard_seek(%.3f)", a.Target)
	default:
		return "none"
	}
}
