// Package mock provides a mock implementation of the MediaBackend interface.
// It is used for testing the synchronizer and for headless runs without an
// audio device or a screen.
package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// DefaultDuration is the duration reported by loaded sources.
const DefaultDuration = 3 * time.Minute

// Backend is a mock implementation of the MediaBackend interface.
// It simulates a media element in memory without rendering anything.
//
// Thread-safety: This implementation is thread-safe.
type Backend struct {
	logger *slog.Logger
	kind   domain.BackendKind

	mu        sync.Mutex
	track     *domain.Track
	source    string
	position  time.Duration
	duration  time.Duration
	volume    float64
	muted     bool
	playing   bool
	closed    bool
	listeners []ports.BackendListener
	calls     []string

	// Behavior configuration (for testing scenarios)
	autoReady   bool
	pushesClock bool
	failLoad    error
	failPlay    error
	blocked     chan struct{}
	loadStarted chan struct{}
}

// NewBackend creates a mock backend of the given kind. Native kinds push
// clock events; the embedded widget must be polled.
func NewBackend(kind domain.BackendKind) *Backend {
	return &Backend{
		logger:      slog.New(slog.DiscardHandler),
		kind:        kind,
		duration:    DefaultDuration,
		volume:      1,
		autoReady:   true,
		pushesClock: kind != domain.BackendEmbeddedWidget,
		loadStarted: make(chan struct{}, 16),
	}
}

// SetLogger sets the logger for this backend.
func (b *Backend) SetLogger(logger *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger.With(slog.String("backend", b.kind.String()))
}

// SetAutoReady configures whether Load reports readiness by itself.
func (b *Backend) SetAutoReady(auto bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoReady = auto
}

// SetDuration sets the duration reported for the next loads.
func (b *Backend) SetDuration(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duration = d
}

// SetFailLoad makes Load return err. A nil err restores normal loads.
func (b *Backend) SetFailLoad(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failLoad = err
}

// SetFailPlay makes Play return err.
func (b *Backend) SetFailPlay(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPlay = err
}

// BlockLoads makes subsequent loads wait until ReleaseLoads.
// Blocked loads ignore cancellation, like a slow third-party player.
func (b *Backend) BlockLoads() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blocked == nil {
		b.blocked = make(chan struct{})
	}
}

// ReleaseLoads lets every blocked load complete.
func (b *Backend) ReleaseLoads() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blocked != nil {
		close(b.blocked)
		b.blocked = nil
	}
}

// LoadStarted receives one value per Load call.
func (b *Backend) LoadStarted() <-chan struct{} {
	return b.loadStarted
}

// Kind returns the kind this mock stands in for.
func (b *Backend) Kind() domain.BackendKind {
	return b.kind
}

// Load records the source and, with auto-ready, reports Ready.
func (b *Backend) Load(ctx context.Context, track domain.Track, source string, listener ports.BackendListener) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrClosed
	}
	b.calls = append(b.calls, "load:"+track.ID)
	b.listeners = append(b.listeners, listener)
	blocked := b.blocked
	b.mu.Unlock()

	select {
	case b.loadStarted <- struct{}{}:
	default:
	}

	if blocked != nil {
		<-blocked
	} else if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.failLoad != nil {
		err := b.failLoad
		b.mu.Unlock()
		return domain.NewBackendError("load", b.kind, source, "mock load failed", err)
	}
	t := track
	b.track = &t
	b.source = source
	b.position = 0
	b.playing = false
	duration, autoReady := b.duration, b.autoReady
	b.mu.Unlock()

	b.logger.Debug("mock source loaded", slog.String("track_id", track.ID))
	if autoReady {
		listener(domain.BackendEvent{Kind: domain.BackendEventReady, Duration: duration})
	}
	return nil
}

// Clear detaches the source.
func (b *Backend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "clear")
	b.track = nil
	b.source = ""
	b.position = 0
	b.playing = false
	return nil
}

// Close marks the backend closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.track = nil
	b.playing = false
	return nil
}

// Play starts playback of the loaded source.
func (b *Backend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "play")
	if b.failPlay != nil {
		return b.failPlay
	}
	if b.track == nil {
		return domain.ErrNoSource
	}
	b.playing = true
	return nil
}

// Pause pauses playback.
func (b *Backend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "pause")
	b.playing = false
	return nil
}

// Seek moves the position.
func (b *Backend) Seek(position time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "seek")
	if b.track == nil {
		return domain.ErrNoSource
	}
	b.position = position
	return nil
}

// SetVolume sets the volume.
func (b *Backend) SetVolume(volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = volume
	return nil
}

// SetMuted mutes or unmutes.
func (b *Backend) SetMuted(muted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
	return nil
}

// PushesClock reports whether the mock stands in for a native element.
func (b *Backend) PushesClock() bool {
	return b.pushesClock
}

// Clock returns the simulated position and duration.
func (b *Backend) Clock(ctx context.Context) (time.Duration, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.track == nil {
		return 0, 0, domain.ErrNoSource
	}
	return b.position, b.duration, nil
}

// Emit sends event through the listener of the latest load.
func (b *Backend) Emit(event domain.BackendEvent) {
	b.mu.Lock()
	if len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	listener := b.listeners[len(b.listeners)-1]
	if event.Kind == domain.BackendEventClock {
		b.position = event.Position
	}
	b.mu.Unlock()
	listener(event)
}

// Listener returns the listener passed to the i-th Load call.
func (b *Backend) Listener(i int) ports.BackendListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.listeners) {
		return func(domain.BackendEvent) {}
	}
	return b.listeners[i]
}

// Loads returns how many times Load was called.
func (b *Backend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Calls returns the recorded transport calls in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// LoadedTrackID returns the id of the loaded track, or "".
func (b *Backend) LoadedTrackID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.track == nil {
		return ""
	}
	return b.track.ID
}

// Source returns the loaded source URL.
func (b *Backend) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// IsPlaying reports whether the mock is playing.
func (b *Backend) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// SetPosition moves the simulated position without any notification.
func (b *Backend) SetPosition(position time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = position
}

// Position returns the simulated position.
func (b *Backend) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// Volume returns the last volume set.
func (b *Backend) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Muted reports whether the mock is muted.
func (b *Backend) Muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

var _ ports.MediaBackend = (*Backend)(nil)
