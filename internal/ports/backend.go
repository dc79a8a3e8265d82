// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"context"
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
)

// BackendListener receives notifications from a media backend.
// Backends may call it from any goroutine; it must not block.
type BackendListener func(event domain.BackendEvent)

// MediaBackend is the interface for the three media backends
// (native audio, native video, embedded widget).
// It gives the synchronizer one transport contract regardless of how media is rendered.
//
// Only the synchronizer drives a backend, and only while it is the active one.
// Implementations must be thread-safe as listener callbacks, clock polls and
// commands may come from different goroutines.
type MediaBackend interface {
	// Kind returns which of the three backends this is.
	Kind() domain.BackendKind

	// Source lifecycle methods

	// Load assigns a new source and starts loading it.
	// source is the resolved URL for native backends and empty for the widget,
	// which reads track.YouTubeVideoID instead.
	//
	// Load may block until the source is attached (for example while the
	// widget script loads). It must return promptly once ctx is canceled.
	// Readiness, clock, state and end-of-media are reported through listener.
	//
	// Returns an error if the source cannot be attached.
	Load(ctx context.Context, track domain.Track, source string, listener BackendListener) error

	// Clear detaches the current source, pausing any output.
	// Clearing an idle backend is a no-op.
	Clear() error

	// Close releases all backend resources.
	// The backend must not be used after Close.
	Close() error

	// Transport methods

	// Play starts or resumes playback of the loaded source.
	Play() error

	// Pause pauses playback of the loaded source.
	Pause() error

	// Seek moves the playback position.
	Seek(position time.Duration) error

	// Volume methods

	// SetVolume sets the output volume (0.0 to 1.0).
	SetVolume(volume float64) error

	// SetMuted mutes or unmutes the output without changing the volume.
	SetMuted(muted bool) error

	// Clock methods

	// PushesClock reports whether the backend pushes clock events through
	// the listener. Backends that do not must be polled with Clock.
	PushesClock() bool

	// Clock returns the current position and duration.
	Clock(ctx context.Context) (position, duration time.Duration, err error)
}
