package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// User-visible messages of the embedded widget.
const (
	MsgWidgetInitFailed = "Unable to initialize YouTube player."
	MsgWidgetPlayFailed = "This video cannot be played in embedded mode."
)

const (
	defaultPollInterval = 250 * time.Millisecond
	seekStep            = 5 * time.Second
	volumeStep          = 0.05
)

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithPollInterval sets how often backends without clock events are polled.
func WithPollInterval(interval time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithRandom replaces the source of shuffle picks. intn must behave like rand.IntN.
func WithRandom(intn func(n int) int) SynchronizerOption {
	return func(s *Synchronizer) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// activation is the backend currently bound to a track.
type activation struct {
	gen     uint64
	kind    domain.BackendKind
	backend ports.MediaBackend
	track   domain.Track
	source  string
	state   domain.BackendState

	ctx    context.Context
	cancel context.CancelFunc

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// BackendStatus describes the active backend.
type BackendStatus struct {
	Kind    domain.BackendKind
	State   domain.BackendState
	TrackID string
}

// Synchronizer keeps exactly one media backend consistent with the player
// state. It observes state changes on the bus, drives the active backend and
// folds backend events back into the store and its own clock.
//
// State changes and backend callbacks are handled one at a time on the
// synchronizer's mailbox goroutine, in the order they arrive. Every
// activation gets a new generation; callbacks of older generations are dropped.
type Synchronizer struct {
	logger   *slog.Logger
	store    *StateStore
	bus      ports.EventBus
	backends map[domain.BackendKind]ports.MediaBackend

	pollInterval time.Duration
	intn         func(int) int

	mailbox *mailbox
	subID   domain.SubscriptionID
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup

	// Owned by the mailbox goroutine.
	last         domain.PlayerState
	lastRevision uint64
	generation   uint64
	active       *activation
	unavailable  string
	errorShown   bool

	viewMu   sync.RWMutex
	position time.Duration
	duration time.Duration
	status   *BackendStatus

	shutdownOnce sync.Once
}

// NewSynchronizer creates a synchronizer over the given backends and starts
// observing the store. At most one backend per kind is used.
func NewSynchronizer(
	logger *slog.Logger,
	store *StateStore,
	bus ports.EventBus,
	backends []ports.MediaBackend,
	opts ...SynchronizerOption,
) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		logger:       logger.With(slog.String("service", "synchronizer")),
		store:        store,
		bus:          bus,
		backends:     make(map[domain.BackendKind]ports.MediaBackend, len(backends)),
		pollInterval: defaultPollInterval,
		intn:         rand.IntN,
		ctx:          ctx,
		cancel:       cancel,
		last:         domain.NewPlayerState(),
	}
	for _, b := range backends {
		if _, dup := s.backends[b.Kind()]; dup {
			s.logger.Warn("duplicate backend ignored", slog.String("kind", b.Kind().String()))
			continue
		}
		s.backends[b.Kind()] = b
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mailbox = newMailbox()
	s.subID = bus.Subscribe(domain.EventStateChanged, func(event domain.Event) {
		e, ok := event.(domain.StateChangedEvent)
		if !ok {
			return
		}
		s.mailbox.post(func() { s.onStateChanged(e.Revision, e.State) })
	})

	// Catch up with whatever the store held before we subscribed.
	rev, state := store.Revision(), store.State()
	s.mailbox.post(func() { s.onStateChanged(rev, state) })

	s.logger.Debug("synchronizer initialized", slog.Int("backends", len(s.backends)))
	return s
}

// Transport surface

// Play sets the playing intent. It fails when no track is selected.
func (s *Synchronizer) Play() error {
	if _, ok := s.store.CurrentTrack(); !ok {
		return domain.ErrNoTrackSelected
	}
	s.store.SetPlaying(true)
	return nil
}

// Pause clears the playing intent.
func (s *Synchronizer) Pause() {
	s.store.SetPlaying(false)
}

// TogglePlaying flips the playing intent.
func (s *Synchronizer) TogglePlaying() error {
	if s.store.State().IsPlaying {
		s.Pause()
		return nil
	}
	return s.Play()
}

// Seek moves the active backend to position, clamped to [0, duration].
func (s *Synchronizer) Seek(position time.Duration) {
	s.mailbox.post(func() { s.seek(position) })
}

// SeekBy moves the position by delta, clamped like Seek.
func (s *Synchronizer) SeekBy(delta time.Duration) {
	s.mailbox.post(func() { s.seek(s.CurrentTime() + delta) })
}

// SeekForward and SeekBackward move by the keyboard step.
func (s *Synchronizer) SeekForward()  { s.SeekBy(seekStep) }
func (s *Synchronizer) SeekBackward() { s.SeekBy(-seekStep) }

// SetVolume stores the volume clamped to [0, 1]. The active backend is muted
// at 0 and unmuted above.
func (s *Synchronizer) SetVolume(volume float64) {
	s.store.SetVolume(clampVolume(volume))
}

// NudgeVolume changes the volume by delta.
func (s *Synchronizer) NudgeVolume(delta float64) {
	s.SetVolume(s.store.State().Volume + delta)
}

// VolumeUp and VolumeDown change the volume by the keyboard step.
func (s *Synchronizer) VolumeUp()   { s.NudgeVolume(volumeStep) }
func (s *Synchronizer) VolumeDown() { s.NudgeVolume(-volumeStep) }

// Next plays the next track of the play-base.
func (s *Synchronizer) Next() {
	s.mailbox.post(func() { s.step(s.store.State(), 1) })
}

// Previous plays the previous track of the play-base.
func (s *Synchronizer) Previous() {
	s.mailbox.post(func() { s.step(s.store.State(), -1) })
}

// PlayTrackAt plays the play-base track at index, wrapping out-of-range indexes.
func (s *Synchronizer) PlayTrackAt(index int) {
	s.mailbox.post(func() {
		base := s.store.PlayBase()
		if len(base) == 0 {
			return
		}
		n := len(base)
		s.store.PlayTrack(base[((index%n)+n)%n].ID)
	})
}

// CurrentTime returns the playback position of the active backend.
func (s *Synchronizer) CurrentTime() time.Duration {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.position
}

// Duration returns the media duration of the active backend.
func (s *Synchronizer) Duration() time.Duration {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.duration
}

// ActiveBackend returns the status of the active backend, if any.
func (s *Synchronizer) ActiveBackend() (BackendStatus, bool) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	if s.status == nil {
		return BackendStatus{}, false
	}
	return *s.status, true
}

// Settle blocks until every queued state change and backend callback was
// handled and no backend load is in flight.
func (s *Synchronizer) Settle() {
	s.mailbox.settle()
}

// Shutdown tears down the active backend and stops all goroutines.
// Backends are not closed; their owner does that.
func (s *Synchronizer) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Debug("shutting down synchronizer")
		s.bus.Unsubscribe(s.subID)

		done := make(chan struct{})
		if s.mailbox.post(func() {
			s.deactivate()
			close(done)
		}) {
			<-done
		}
		s.mailbox.close()
		s.cancel()
		s.tasks.Wait()
		s.logger.Debug("synchronizer stopped")
	})
}

// Mailbox handlers

func (s *Synchronizer) onStateChanged(revision uint64, state domain.PlayerState) {
	if revision != 0 && revision <= s.lastRevision {
		return
	}
	prev := s.last
	s.last = state
	s.lastRevision = revision
	s.reconcile(prev, state)
}

// reconcile brings the active backend in line with cur.
func (s *Synchronizer) reconcile(prev, cur domain.PlayerState) {
	base := cur.PlayBase()
	if len(base) == 0 {
		if cur.IsPlaying {
			s.store.SetPlaying(false)
		}
	} else if domain.IndexOf(base, cur.CurrentTrackID) < 0 {
		// The follow-up state change reconciles the new selection.
		s.store.SetCurrentTrack(base[0].ID)
		return
	}

	track, ok := cur.CurrentTrack()
	if !ok {
		s.deactivate()
		return
	}

	kind := domain.SelectBackend(track)
	source := track.Source(cur.StreamQuality)
	activated := false
	if s.active == nil && s.unavailable == track.ID {
		if cur.IsPlaying {
			s.store.SetPlaying(false)
		}
		return
	}
	if a := s.active; a == nil || a.track.ID != track.ID || a.kind != kind || a.source != source {
		s.activate(track, kind, source)
		activated = true
	}

	if activated || prev.Volume != cur.Volume {
		s.applyVolume(cur.Volume)
	}
	s.applyTransport(cur.IsPlaying)
}

func (s *Synchronizer) activate(track domain.Track, kind domain.BackendKind, source string) {
	s.deactivate()

	if s.errorShown {
		s.errorShown = false
		s.bus.Publish(domain.NewPlayerErrorClearedEvent(domain.ErrorSourcePlayer))
	}

	backend, ok := s.backends[kind]
	if !ok {
		s.logger.Warn("no backend for track", slog.String("kind", kind.String()), slog.String("track_id", track.ID))
		s.unavailable = track.ID
		if kind == domain.BackendEmbeddedWidget {
			s.showError(MsgWidgetInitFailed, domain.ErrNotInitialized)
			s.store.SetPlaying(false)
		}
		return
	}

	s.generation++
	ctx, cancel := context.WithCancel(s.ctx)
	a := &activation{
		gen:     s.generation,
		kind:    kind,
		backend: backend,
		track:   track,
		source:  source,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.active = a
	s.setClock(0, 0, false)
	s.setState(a, domain.BackendLoading)

	s.logger.Debug("activating backend",
		slog.String("kind", kind.String()),
		slog.String("track_id", track.ID),
		slog.Uint64("generation", a.gen))

	gen := a.gen
	listener := func(event domain.BackendEvent) {
		s.mailbox.post(func() { s.onBackendEvent(gen, event) })
	}

	s.tasks.Add(1)
	s.mailbox.track(1)
	go func() {
		defer s.tasks.Done()
		defer s.mailbox.track(-1)
		err := backend.Load(ctx, track, source, listener)
		s.mailbox.post(func() { s.onLoaded(gen, err) })
	}()

	if !backend.PushesClock() {
		s.startPoller(a)
	}
}

// deactivate tears down the active backend. The poller is joined before
// the source is cleared.
func (s *Synchronizer) deactivate() {
	s.unavailable = ""
	a := s.active
	if a == nil {
		return
	}
	s.active = nil
	a.cancel()
	s.stopPoller(a)
	if err := a.backend.Clear(); err != nil {
		s.logger.Warn("failed to clear backend", slog.String("kind", a.kind.String()), slog.Any("error", err))
	}
	s.setClock(0, 0, false)

	s.viewMu.Lock()
	s.status = nil
	s.viewMu.Unlock()
	s.bus.Publish(domain.NewBackendChangedEvent(a.kind, domain.BackendIdle, a.track.ID, false))
}

func (s *Synchronizer) startPoller(a *activation) {
	ctx, cancel := context.WithCancel(a.ctx)
	a.pollCancel = cancel
	a.pollDone = make(chan struct{})
	gen, backend, interval, done := a.gen, a.backend, s.pollInterval, a.pollDone

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, dur, err := backend.Clock(ctx)
				if err != nil {
					continue
				}
				event := domain.BackendEvent{Kind: domain.BackendEventClock, Position: pos, Duration: dur}
				s.mailbox.post(func() { s.onBackendEvent(gen, event) })
			}
		}
	}()
}

func (s *Synchronizer) stopPoller(a *activation) {
	if a.pollCancel == nil {
		return
	}
	a.pollCancel()
	<-a.pollDone
	a.pollCancel = nil
}

func (s *Synchronizer) current(gen uint64) (*activation, bool) {
	a := s.active
	if a == nil || a.gen != gen {
		return nil, false
	}
	return a, true
}

func (s *Synchronizer) onLoaded(gen uint64, err error) {
	a, ok := s.current(gen)
	if !ok {
		s.logger.Debug("dropping stale load result", slog.Uint64("generation", gen))
		return
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	if a.kind == domain.BackendEmbeddedWidget {
		s.logger.Error("embedded widget failed to initialize", slog.String("track_id", a.track.ID), slog.Any("error", err))
		s.fail(a, MsgWidgetInitFailed, err)
		return
	}

	// Native backends fail passively.
	s.logger.Warn("failed to load media", slog.String("track_id", a.track.ID), slog.Any("error", err))
	s.setState(a, domain.BackendIdle)
}

func (s *Synchronizer) onBackendEvent(gen uint64, event domain.BackendEvent) {
	a, ok := s.current(gen)
	if !ok {
		s.logger.Debug("dropping stale backend event",
			slog.Uint64("generation", gen),
			slog.String("event", event.Kind.String()))
		return
	}

	switch event.Kind {
	case domain.BackendEventReady:
		if a.state == domain.BackendLoading || a.state == domain.BackendIdle {
			s.setState(a, domain.BackendReady)
		}
		s.setClock(s.CurrentTime(), event.Duration, true)
		s.applyVolume(s.last.Volume)
		s.applyTransport(s.last.IsPlaying)

	case domain.BackendEventClock:
		s.setClock(event.Position, event.Duration, true)

	case domain.BackendEventPlaying:
		s.setState(a, domain.BackendPlaying)
		if !s.last.IsPlaying {
			s.store.SetPlaying(true)
		}

	case domain.BackendEventPaused:
		if a.state == domain.BackendPlaying {
			s.setState(a, domain.BackendPaused)
		}
		if s.last.IsPlaying {
			s.store.SetPlaying(false)
		}

	case domain.BackendEventEnded:
		s.handleEnded(a)

	case domain.BackendEventFailed:
		if a.kind == domain.BackendEmbeddedWidget {
			s.logger.Error("embedded widget playback failed", slog.String("track_id", a.track.ID), slog.Any("error", event.Err))
			s.fail(a, MsgWidgetPlayFailed, event.Err)
			return
		}
		s.logger.Warn("media error", slog.String("track_id", a.track.ID), slog.Any("error", event.Err))
		s.setState(a, domain.BackendIdle)
	}
}

// handleEnded applies the end-of-media policy.
func (s *Synchronizer) handleEnded(a *activation) {
	s.logger.Debug("track ended", slog.String("track_id", a.track.ID))
	s.setState(a, domain.BackendEnded)
	s.setClock(s.Duration(), s.Duration(), true)
	s.bus.Publish(domain.NewTrackEndedEvent(a.track))

	cur := s.store.State()
	switch {
	case cur.Modes.Loop:
		s.rewind(a)
		if cur.Modes.Autoplay {
			s.play(a)
			s.store.SetPlaying(true)
			return
		}
		s.setState(a, domain.BackendPaused)
		s.store.SetPlaying(false)

	case cur.Modes.Autoplay:
		s.step(cur, 1)

	default:
		s.rewind(a)
		s.setState(a, domain.BackendPaused)
		s.store.SetPlaying(false)
	}
}

// step selects the next (delta 1) or previous (delta -1) track of the play-base.
func (s *Synchronizer) step(cur domain.PlayerState, delta int) {
	base := cur.PlayBase()
	if len(base) == 0 {
		return
	}

	idx := domain.IndexOf(base, cur.CurrentTrackID)
	var target int
	if cur.Modes.Shuffle {
		target = domain.ShuffleIndex(len(base), idx, s.intn)
	} else {
		target = domain.StepIndex(len(base), idx, delta)
	}

	next := base[target]
	if a := s.active; a != nil && next.ID == cur.CurrentTrackID {
		// A single-track base restarts the track.
		s.rewind(a)
		if a.state.CanPlay() {
			s.play(a)
		}
		s.store.SetPlaying(true)
		return
	}
	s.store.PlayTrack(next.ID)
}

func (s *Synchronizer) seek(position time.Duration) {
	a := s.active
	if a == nil || a.state == domain.BackendLoading || a.state == domain.BackendFailed {
		return
	}
	dur := s.Duration()
	position = max(0, min(position, dur))
	if err := a.backend.Seek(position); err != nil {
		s.logger.Warn("seek failed", slog.Duration("position", position), slog.Any("error", err))
		return
	}
	s.setClock(position, dur, true)
}

func (s *Synchronizer) rewind(a *activation) {
	if err := a.backend.Seek(0); err != nil {
		s.logger.Warn("rewind failed", slog.Any("error", err))
	}
	s.setClock(0, s.Duration(), true)
}

func (s *Synchronizer) play(a *activation) {
	if err := a.backend.Play(); err != nil {
		s.logger.Warn("play failed", slog.String("kind", a.kind.String()), slog.Any("error", err))
		return
	}
	s.setState(a, domain.BackendPlaying)
}

func (s *Synchronizer) applyTransport(playing bool) {
	a := s.active
	if a == nil {
		return
	}
	switch {
	case playing && a.state == domain.BackendFailed:
		// Error is terminal for the track.
		s.store.SetPlaying(false)
	case playing && a.state.CanPlay():
		s.play(a)
	case !playing && a.state == domain.BackendPlaying:
		if err := a.backend.Pause(); err != nil {
			s.logger.Warn("pause failed", slog.String("kind", a.kind.String()), slog.Any("error", err))
			return
		}
		s.setState(a, domain.BackendPaused)
	}
}

func (s *Synchronizer) applyVolume(volume float64) {
	a := s.active
	if a == nil {
		return
	}
	volume = clampVolume(volume)
	if err := a.backend.SetVolume(volume); err != nil {
		s.logger.Warn("failed to set volume", slog.Float64("volume", volume), slog.Any("error", err))
	}
	if err := a.backend.SetMuted(volume <= 0); err != nil {
		s.logger.Warn("failed to set mute", slog.Any("error", err))
	}
}

func (s *Synchronizer) fail(a *activation, message string, err error) {
	s.stopPoller(a)
	s.setState(a, domain.BackendFailed)
	s.showError(message, err)
	s.store.SetPlaying(false)
}

func (s *Synchronizer) showError(message string, err error) {
	s.errorShown = true
	s.bus.Publish(domain.NewPlayerErrorEvent(domain.ErrorSourcePlayer, message, err))
}

func (s *Synchronizer) setState(a *activation, state domain.BackendState) {
	a.state = state
	s.viewMu.Lock()
	s.status = &BackendStatus{Kind: a.kind, State: state, TrackID: a.track.ID}
	s.viewMu.Unlock()
	s.bus.Publish(domain.NewBackendChangedEvent(a.kind, state, a.track.ID, true))
}

func (s *Synchronizer) setClock(position, duration time.Duration, publish bool) {
	s.viewMu.Lock()
	changed := s.position != position || s.duration != duration
	s.position = position
	s.duration = duration
	s.viewMu.Unlock()

	if publish && changed && s.active != nil {
		s.bus.Publish(domain.NewClockUpdatedEvent(s.active.track.ID, position, duration))
	}
}

// clampVolume bounds volume to [0, 1]. NaN is treated as silence.
func clampVolume(volume float64) float64 {
	if math.IsNaN(volume) {
		return 0
	}
	return min(max(volume, 0), 1)
}
