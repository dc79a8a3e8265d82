// Package domain defines events for the event-driven architecture.
// Events decouple the state store, the synchronizer, services and the UI.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// State events
	EventStateChanged EventType = "state.changed"
	EventHydrated     EventType = "state.hydrated"

	// Playback events
	EventBackendChanged EventType = "playback.backend"
	EventClockUpdated   EventType = "playback.clock"
	EventTrackEnded     EventType = "track.ended"

	// Error events
	EventPlayerError        EventType = "player.error"
	EventPlayerErrorCleared EventType = "player.error_cleared"

	// Search events
	EventSearchCompleted EventType = "search.completed"
	EventSearchFailed    EventType = "search.failed"
	EventCategoryLoaded  EventType = "category.loaded"

	// Persistence events
	EventProfileSaved EventType = "profile.saved"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// StateChangedEvent is published after every state transition.
// Revision increases by one per transition, so subscribers can drop
// snapshots that arrive out of order.
type StateChangedEvent struct {
	baseEvent
	Intent   string
	Revision uint64
	State    PlayerState
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(intent string, revision uint64, state PlayerState) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		Intent:    intent,
		Revision:  revision,
		State:     state,
	}
}

// HydratedEvent is published once the catalog and profile were merged.
type HydratedEvent struct {
	baseEvent
	TrackCount   int
	ProfileFound bool
}

// Type returns the event type.
func (e HydratedEvent) Type() EventType {
	return EventHydrated
}

// NewHydratedEvent creates a new HydratedEvent.
func NewHydratedEvent(trackCount int, profileFound bool) HydratedEvent {
	return HydratedEvent{
		baseEvent:    newBaseEvent(),
		TrackCount:   trackCount,
		ProfileFound: profileFound,
	}
}

// BackendChangedEvent is published when the active backend or its state changes.
type BackendChangedEvent struct {
	baseEvent
	Kind    BackendKind
	State   BackendState
	TrackID string
	Active  bool
}

// Type returns the event type.
func (e BackendChangedEvent) Type() EventType {
	return EventBackendChanged
}

// NewBackendChangedEvent creates a new BackendChangedEvent.
func NewBackendChangedEvent(kind BackendKind, state BackendState, trackID string, active bool) BackendChangedEvent {
	return BackendChangedEvent{
		baseEvent: newBaseEvent(),
		Kind:      kind,
		State:     state,
		TrackID:   trackID,
		Active:    active,
	}
}

// ClockUpdatedEvent is published when the playback position or duration changes.
type ClockUpdatedEvent struct {
	baseEvent
	TrackID  string
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e ClockUpdatedEvent) Type() EventType {
	return EventClockUpdated
}

// NewClockUpdatedEvent creates a new ClockUpdatedEvent.
func NewClockUpdatedEvent(trackID string, position, duration time.Duration) ClockUpdatedEvent {
	return ClockUpdatedEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
		Position:  position,
		Duration:  duration,
	}
}

// TrackEndedEvent is published when the active backend reports end of media.
type TrackEndedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType {
	return EventTrackEnded
}

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(track Track) TrackEndedEvent {
	return TrackEndedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// Error sources shown to the user.
const (
	ErrorSourcePlayer   = "player"
	ErrorSourceSearch   = "search"
	ErrorSourceCategory = "category"
)

// PlayerErrorEvent carries a recoverable, user-visible error message.
type PlayerErrorEvent struct {
	baseEvent
	Source  string
	Message string
	Err     error
}

// Type returns the event type.
func (e PlayerErrorEvent) Type() EventType {
	return EventPlayerError
}

// NewPlayerErrorEvent creates a new PlayerErrorEvent.
func NewPlayerErrorEvent(source, message string, err error) PlayerErrorEvent {
	return PlayerErrorEvent{
		baseEvent: newBaseEvent(),
		Source:    source,
		Message:   message,
		Err:       err,
	}
}

// PlayerErrorClearedEvent is published when a visible error no longer applies.
type PlayerErrorClearedEvent struct {
	baseEvent
	Source string
}

// Type returns the event type.
func (e PlayerErrorClearedEvent) Type() EventType {
	return EventPlayerErrorCleared
}

// NewPlayerErrorClearedEvent creates a new PlayerErrorClearedEvent.
func NewPlayerErrorClearedEvent(source string) PlayerErrorClearedEvent {
	return PlayerErrorClearedEvent{
		baseEvent: newBaseEvent(),
		Source:    source,
	}
}

// SearchCompletedEvent is published with the results of a query search.
type SearchCompletedEvent struct {
	baseEvent
	Query   string
	Results []Track
}

// Type returns the event type.
func (e SearchCompletedEvent) Type() EventType {
	return EventSearchCompleted
}

// NewSearchCompletedEvent creates a new SearchCompletedEvent.
func NewSearchCompletedEvent(query string, results []Track) SearchCompletedEvent {
	return SearchCompletedEvent{
		baseEvent: newBaseEvent(),
		Query:     query,
		Results:   results,
	}
}

// SearchFailedEvent is published when a query or category search fails.
type SearchFailedEvent struct {
	baseEvent
	Query             string
	Message           string
	MissingCredential bool
}

// Type returns the event type.
func (e SearchFailedEvent) Type() EventType {
	return EventSearchFailed
}

// NewSearchFailedEvent creates a new SearchFailedEvent.
func NewSearchFailedEvent(query, message string, missingCredential bool) SearchFailedEvent {
	return SearchFailedEvent{
		baseEvent:         newBaseEvent(),
		Query:             query,
		Message:           message,
		MissingCredential: missingCredential,
	}
}

// CategoryLoadedEvent is published when a category was added to the queue.
type CategoryLoadedEvent struct {
	baseEvent
	Category MusicCategory
	Tracks   []Track
}

// Type returns the event type.
func (e CategoryLoadedEvent) Type() EventType {
	return EventCategoryLoaded
}

// NewCategoryLoadedEvent creates a new CategoryLoadedEvent.
func NewCategoryLoadedEvent(category MusicCategory, tracks []Track) CategoryLoadedEvent {
	return CategoryLoadedEvent{
		baseEvent: newBaseEvent(),
		Category:  category,
		Tracks:    tracks,
	}
}

// ProfileSavedEvent is published after a profile write succeeded.
type ProfileSavedEvent struct {
	baseEvent
	UserID string
}

// Type returns the event type.
func (e ProfileSavedEvent) Type() EventType {
	return EventProfileSaved
}

// NewProfileSavedEvent creates a new ProfileSavedEvent.
func NewProfileSavedEvent(userID string) ProfileSavedEvent {
	return ProfileSavedEvent{
		baseEvent: newBaseEvent(),
		UserID:    userID,
	}
}

// ScanProgress reports library scan progress.
type ScanProgress struct {
	CurrentPath  string
	FilesScanned int
	TracksFound  int
}

// ScanStartedEvent is published when a library scan starts.
type ScanStartedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(path string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanProgressEvent is published periodically during a library scan.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when a library scan completes.
type ScanCompletedEvent struct {
	baseEvent
	TracksFound []Track
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(tracks []Track) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent:   newBaseEvent(),
		TracksFound: tracks,
	}
}

// ScanCancelledEvent is published when a library scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
