package domain

import "time"

// BackendKind identifies one of the three media backends.
type BackendKind int

// Backend kinds.
const (
	BackendNativeAudio BackendKind = iota
	BackendNativeVideo
	BackendEmbeddedWidget
)

// BackendKinds lists every backend kind.
func BackendKinds() []BackendKind {
	return []BackendKind{BackendNativeAudio, BackendNativeVideo, BackendEmbeddedWidget}
}

// String returns a human-readable representation of the kind.
func (k BackendKind) String() string {
	switch k {
	case BackendNativeAudio:
		return "native-audio"
	case BackendNativeVideo:
		return "native-video"
	case BackendEmbeddedWidget:
		return "embedded-widget"
	default:
		return "unknown"
	}
}

// SelectBackend picks the backend that plays track.
func SelectBackend(track Track) BackendKind {
	switch {
	case track.IsYouTube():
		return BackendEmbeddedWidget
	case track.MediaType == MediaVideo:
		return BackendNativeVideo
	default:
		return BackendNativeAudio
	}
}

// BackendState is the lifecycle state of the active backend.
type BackendState int

// Backend states.
const (
	BackendIdle BackendState = iota
	BackendLoading
	BackendReady
	BackendPlaying
	BackendPaused
	BackendEnded
	BackendFailed
)

// String returns a human-readable representation of the state.
func (s BackendState) String() string {
	switch s {
	case BackendIdle:
		return "idle"
	case BackendLoading:
		return "loading"
	case BackendReady:
		return "ready"
	case BackendPlaying:
		return "playing"
	case BackendPaused:
		return "paused"
	case BackendEnded:
		return "ended"
	case BackendFailed:
		return "error"
	default:
		return "unknown"
	}
}

// CanPlay reports whether a play command is meaningful in this state.
func (s BackendState) CanPlay() bool {
	return s == BackendReady || s == BackendPaused || s == BackendEnded
}

// WidgetState is a state-change value reported by the embedded widget.
type WidgetState int

// Embedded widget state values.
const (
	WidgetUnstarted WidgetState = -1
	WidgetEnded     WidgetState = 0
	WidgetPlaying   WidgetState = 1
	WidgetPaused    WidgetState = 2
	WidgetBuffering WidgetState = 3
	WidgetCued      WidgetState = 5
)

// BackendEventKind identifies a backend notification.
type BackendEventKind int

// Backend event kinds.
const (
	// BackendEventReady reports loaded metadata; Duration is set.
	BackendEventReady BackendEventKind = iota
	// BackendEventClock reports Position and Duration.
	BackendEventClock
	// BackendEventPlaying reports that the media started playing.
	BackendEventPlaying
	// BackendEventPaused reports that the media paused on its own.
	BackendEventPaused
	// BackendEventEnded reports end of media.
	BackendEventEnded
	// BackendEventFailed reports a playback failure; Err is set.
	BackendEventFailed
)

// String returns a human-readable representation of the kind.
func (k BackendEventKind) String() string {
	switch k {
	case BackendEventReady:
		return "ready"
	case BackendEventClock:
		return "clock"
	case BackendEventPlaying:
		return "playing"
	case BackendEventPaused:
		return "paused"
	case BackendEventEnded:
		return "ended"
	case BackendEventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BackendEvent is a notification pushed by a media backend.
type BackendEvent struct {
	Kind     BackendEventKind
	Position time.Duration
	Duration time.Duration
	Err      error
}

// WidgetStateEvent maps an embedded widget state value to a backend event.
// It returns false for values that carry no transition.
func WidgetStateEvent(state WidgetState) (BackendEvent, bool) {
	switch state {
	case WidgetEnded:
		return BackendEvent{Kind: BackendEventEnded}, true
	case WidgetPlaying:
		return BackendEvent{Kind: BackendEventPlaying}, true
	case WidgetPaused:
		return BackendEvent{Kind: BackendEventPaused}, true
	default:
		return BackendEvent{}, false
	}
}
