// Package player defines the collaborator interface over whatever
// concrete playback surface hosts the media. The core never assumes a
// specific player technology.
package player

import "context"

type EventKind string

const (
	EventPlay  EventKind = "play"
	EventPause EventKind = "pause"
	EventSeek  EventKind = "seek"
)

type Origin int

const (
	// OriginLocal marks events caused by the person at this client.
	OriginLocal Origin = iota
	// OriginRemote marks events the coordinator applied on behalf of
	// another participant. They must not be echoed back to the relay.
	OriginRemote
)

// Event is a normalized playback event reported by the adapter.
// Origin is an explicit field so concurrent events cannot race a
// shared "suppress next" flag.
type Event struct {
	Kind      EventKind
	Time      float64
	Timestamp int64
	Origin    Origin
}

// Adapter is implemented per platform by glue code that locates the
// native player element and translates its signals.
type Adapter interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error

	CurrentTime(ctx context.Context) (float64, error)
	IsPlaying(ctx context.Context) (bool, error)
	Duration(ctx context.Context) (float64, error)

	PlaybackRate(ctx context.Context) (float64, error)
	SetPlaybackRate(ctx context.Context, rate float64) error

	// Valid reports whether the underlying player element is still
	// reachable.
	Valid() bool

	// OnEvent registers an observer for local playback events and
	// returns an unsubscribe handle.
	OnEvent(fn func(Event)) (unsubscribe func())
}
