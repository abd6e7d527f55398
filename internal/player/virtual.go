package player

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Virtual is an in-process player model: position advances with the
// clock while playing. It stands in until a platform adapter attaches,
// and doubles as the adapter used in tests.
type Virtual struct {
	clock clockwork.Clock

	mu         sync.Mutex
	playing    bool
	position   float64
	rate       float64
	duration   float64
	lastUpdate time.Time

	observers map[int]func(Event)
	nextID    int
}

func NewVirtual(clock clockwork.Clock, duration float64) *Virtual {
	return &Virtual{
		clock:     clock,
		rate:      1,
		duration:  duration,
		observers: make(map[int]func(Event)),
	}
}

func (v *Virtual) positionLocked() float64 {
	pos := v.position
	if v.playing {
		pos += v.clock.Since(v.lastUpdate).Seconds() * v.rate
	}
	if v.duration > 0 && pos > v.duration {
		pos = v.duration
	}

	return pos
}

// checkpoint fixes the advancing position before a state change.
func (v *Virtual) checkpointLocked() {
	v.position = v.positionLocked()
	v.lastUpdate = v.clock.Now()
}

func (v *Virtual) Play(ctx context.Context) error {
	v.setPlaying(true, OriginRemote)
	return nil
}

func (v *Virtual) Pause(ctx context.Context) error {
	v.setPlaying(false, OriginRemote)
	return nil
}

func (v *Virtual) Seek(ctx context.Context, seconds float64) error {
	v.seek(seconds, OriginRemote)
	return nil
}

// UserPlay, UserPause and UserSeek model the person at this client
// touching the controls; the resulting events carry local origin and
// are forwarded to the room.
func (v *Virtual) UserPlay()             { v.setPlaying(true, OriginLocal) }
func (v *Virtual) UserPause()            { v.setPlaying(false, OriginLocal) }
func (v *Virtual) UserSeek(secs float64) { v.seek(secs, OriginLocal) }

func (v *Virtual) setPlaying(playing bool, origin Origin) {
	v.mu.Lock()
	v.checkpointLocked()
	changed := v.playing != playing
	v.playing = playing
	pos := v.position
	v.mu.Unlock()

	if !changed {
		return
	}

	kind := EventPlay
	if !playing {
		kind = EventPause
	}
	v.emit(Event{Kind: kind, Time: pos, Timestamp: v.clock.Now().UnixMilli(), Origin: origin})
}

func (v *Virtual) seek(seconds float64, origin Origin) {
	v.mu.Lock()
	v.position = seconds
	v.lastUpdate = v.clock.Now()
	v.mu.Unlock()

	v.emit(Event{Kind: EventSeek, Time: seconds, Timestamp: v.clock.Now().UnixMilli(), Origin: origin})
}

func (v *Virtual) CurrentTime(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked(), nil
}

func (v *Virtual) IsPlaying(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing, nil
}

func (v *Virtual) Duration(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration, nil
}

func (v *Virtual) PlaybackRate(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rate, nil
}

func (v *Virtual) SetPlaybackRate(ctx context.Context, rate float64) error {
	v.mu.Lock()
	v.checkpointLocked()
	v.rate = rate
	v.mu.Unlock()

	return nil
}

func (v *Virtual) Valid() bool { return true }

func (v *Virtual) OnEvent(fn func(Event)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.observers, id)
		v.mu.Unlock()
	}
}

func (v *Virtual) emit(ev Event) {
	v.mu.Lock()
	observers := make([]func(Event), 0, len(v.observers))
	for _, fn := range v.observers {
		observers = append(observers, fn)
	}
	v.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
