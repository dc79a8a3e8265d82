package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuveplayer/nuve/internal/adapter/backend/mock"
	"github.com/nuveplayer/nuve/internal/adapter/eventbus"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/logger"
	"github.com/nuveplayer/nuve/internal/ports"
	"github.com/nuveplayer/nuve/internal/testutil"
)

type syncHarness struct {
	store  *StateStore
	bus    *eventbus.SyncEventBus
	syn    *Synchronizer
	audio  *mock.Backend
	video  *mock.Backend
	widget *mock.Backend
}

// Helper to create a synchronizer over three mock backends
func newSyncHarness(opts ...SynchronizerOption) *syncHarness {
	bus := eventbus.NewSyncEventBus()
	log := logger.NewTestLogger()
	h := &syncHarness{
		bus:    bus,
		store:  NewStateStore(log, bus),
		audio:  mock.NewBackend(domain.BackendNativeAudio),
		video:  mock.NewBackend(domain.BackendNativeVideo),
		widget: mock.NewBackend(domain.BackendEmbeddedWidget),
	}
	h.syn = NewSynchronizer(log, h.store, bus,
		[]ports.MediaBackend{h.audio, h.video, h.widget}, opts...)
	return h
}

func (h *syncHarness) queue(tracks ...domain.Track) {
	h.store.SetQueue(tracks)
	h.syn.Settle()
}

func (h *syncHarness) current() string {
	return h.store.State().CurrentTrackID
}

func TestSynchronizer_SelectsBackendPerTrack(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()

	h.queue(audioTrack("a", "A", "x"), videoTrack("v", "V"), youtubeTrack("y", "vid123"))

	status, ok := h.syn.ActiveBackend()
	require.True(t, ok)
	assert.Equal(t, domain.BackendNativeAudio, status.Kind)
	assert.Equal(t, domain.BackendReady, status.State)
	assert.Equal(t, "a", h.audio.LoadedTrackID())
	assert.Equal(t, "https://cdn.example.com/a-high.mp3", h.audio.Source())

	h.store.PlayTrack("v")
	h.syn.Settle()

	status, _ = h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendNativeVideo, status.Kind)
	assert.Equal(t, "v", h.video.LoadedTrackID())
	assert.Empty(t, h.audio.LoadedTrackID(), "previous backend must be cleared")
	assert.Contains(t, h.audio.Calls(), "clear")

	h.store.PlayTrack("y")
	h.syn.Settle()

	status, _ = h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendEmbeddedWidget, status.Kind)
	assert.Equal(t, "y", h.widget.LoadedTrackID())
	assert.Empty(t, h.widget.Source())
	assert.Empty(t, h.video.LoadedTrackID())
}

func TestSynchronizer_QualityChangeReloadsSource(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()

	h.queue(audioTrack("a", "A", "x"))
	require.NoError(t, h.store.SetStreamQuality(domain.QualityLow))
	h.syn.Settle()

	assert.Equal(t, 2, h.audio.Loads())
	assert.Equal(t, "https://cdn.example.com/a-low.mp3", h.audio.Source())
}

func TestSynchronizer_PlayPause(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()

	h.queue(audioTrack("a", "A", "x"))

	require.NoError(t, h.syn.Play())
	h.syn.Settle()
	assert.True(t, h.audio.IsPlaying())
	status, _ := h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendPlaying, status.State)

	h.syn.Pause()
	h.syn.Settle()
	assert.False(t, h.audio.IsPlaying())

	require.NoError(t, h.syn.TogglePlaying())
	h.syn.Settle()
	assert.True(t, h.audio.IsPlaying())
	assert.True(t, h.store.State().IsPlaying)
}

func TestSynchronizer_Play_NoTrack(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()

	err := h.syn.Play()
	assert.ErrorIs(t, err, domain.ErrNoTrackSelected)
	assert.False(t, h.store.State().IsPlaying)
}

func TestSynchronizer_PlayWaitsForReady(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.audio.SetAutoReady(false)

	h.queue(audioTrack("a", "A", "x"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	status, _ := h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendLoading, status.State)
	assert.False(t, h.audio.IsPlaying())

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventReady, Duration: time.Minute})
	h.syn.Settle()

	assert.True(t, h.audio.IsPlaying())
	assert.Equal(t, time.Minute, h.syn.Duration())
}

func TestSynchronizer_SetVolume_ClampsAndMutes(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))

	tests := []struct {
		name  string
		input float64
		want  float64
		muted bool
	}{
		{"above range", 1.5, 1, false},
		{"zero mutes", 0, 0, true},
		{"inside range unmutes", 0.3, 0.3, false},
		{"below range", -2, 0, true},
		{"upper bound", 1, 1, false},
		{"not a number", math.NaN(), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.syn.SetVolume(tt.input)
			h.syn.Settle()

			assert.Equal(t, tt.want, h.store.State().Volume)
			assert.Equal(t, tt.want, h.audio.Volume())
			assert.Equal(t, tt.muted, h.audio.Muted())
		})
	}
}

func TestSynchronizer_HydratedVolumeIsClampedOnApply(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()

	volume := 3.0
	h.store.Hydrate(domain.Preferences{Volume: &volume})
	h.queue(audioTrack("a", "A", "x"))

	assert.Equal(t, 3.0, h.store.State().Volume)
	assert.Equal(t, 1.0, h.audio.Volume())
}

func TestSynchronizer_NudgeVolume(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))

	h.syn.SetVolume(0.98)
	h.syn.VolumeUp()
	h.syn.Settle()
	assert.Equal(t, 1.0, h.store.State().Volume)

	h.syn.SetVolume(0.03)
	h.syn.VolumeDown()
	h.syn.Settle()
	assert.Equal(t, 0.0, h.store.State().Volume)
	assert.True(t, h.audio.Muted())
}

func TestSynchronizer_NextPreviousWrap(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))

	h.syn.Previous()
	h.syn.Settle()
	assert.Equal(t, "c", h.current(), "previous from the first wraps to the last")

	h.syn.Next()
	h.syn.Settle()
	assert.Equal(t, "a", h.current(), "next from the last wraps to the first")
	assert.True(t, h.store.State().IsPlaying)
}

func TestSynchronizer_NextThenPreviousReturns(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	tracks := []domain.Track{
		audioTrack("a", "A", "x"), audioTrack("b", "B", "x"),
		audioTrack("c", "C", "x"), audioTrack("d", "D", "x"),
	}
	h.queue(tracks...)

	for _, start := range tracks {
		h.store.SetCurrentTrack(start.ID)
		h.syn.Next()
		h.syn.Settle()
		h.syn.Previous()
		h.syn.Settle()
		assert.Equal(t, start.ID, h.current())
	}
}

func TestSynchronizer_NextOverPlayBase(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))
	h.store.ToggleFavorite("a")
	h.store.ToggleFavorite("c")
	h.store.SetActivePlaylist(domain.PlaylistFavorites)
	h.syn.Settle()

	h.syn.Next()
	h.syn.Settle()
	assert.Equal(t, "c", h.current())

	h.syn.Next()
	h.syn.Settle()
	assert.Equal(t, "a", h.current())
}

func TestSynchronizer_NextEmptyBaseIsNoop(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))
	h.store.SetActivePlaylist(domain.PlaylistFavorites)
	h.syn.Settle()

	h.syn.Next()
	h.syn.Previous()
	h.syn.Settle()

	assert.Equal(t, "a", h.current())
	assert.False(t, h.store.State().IsPlaying)
}

func TestSynchronizer_Shuffle(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	var bounds []int
	h := newSyncHarness(WithRandom(func(n int) int {
		bounds = append(bounds, n)
		return 0
	}))
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))
	require.NoError(t, h.store.SetMode(domain.ModeShuffle, true))

	h.syn.Next()
	h.syn.Settle()
	assert.Equal(t, "b", h.current(), "the current index is skipped")

	h.syn.Previous()
	h.syn.Settle()
	assert.Equal(t, "a", h.current())
	assert.Equal(t, []int{2, 2}, bounds)
}

func TestSynchronizer_PlayTrackAt(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))

	h.syn.PlayTrackAt(4)
	h.syn.Settle()
	assert.Equal(t, "b", h.current())

	h.syn.PlayTrackAt(-1)
	h.syn.Settle()
	assert.Equal(t, "c", h.current())
	assert.True(t, h.audio.IsPlaying())
}

func TestSynchronizer_EndedAdvancesWithAutoplay(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventTrackEnded)
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventEnded})
	h.syn.Settle()

	st := h.store.State()
	assert.Equal(t, "b", st.CurrentTrackID)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, "b", h.audio.LoadedTrackID())
	assert.True(t, h.audio.IsPlaying())
	require.Len(t, rec.all(), 1)
	assert.Equal(t, "a", rec.all()[0].(domain.TrackEndedEvent).Track.ID)
}

func TestSynchronizer_EndedLoopWithoutAutoplay(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))
	require.NoError(t, h.store.SetMode(domain.ModeLoop, true))
	require.NoError(t, h.store.SetMode(domain.ModeAutoplay, false))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventClock, Position: 170 * time.Second, Duration: mock.DefaultDuration})
	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventEnded})
	h.syn.Settle()

	assert.Equal(t, time.Duration(0), h.syn.CurrentTime())
	assert.Equal(t, time.Duration(0), h.audio.Position())
	assert.False(t, h.store.State().IsPlaying)
	assert.Equal(t, "a", h.current())
	status, _ := h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendPaused, status.State)
}

func TestSynchronizer_EndedLoopWithAutoplay(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"))
	require.NoError(t, h.store.SetMode(domain.ModeLoop, true))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventEnded})
	h.syn.Settle()

	assert.Equal(t, "a", h.current())
	assert.True(t, h.store.State().IsPlaying)
	assert.True(t, h.audio.IsPlaying())
	assert.Equal(t, time.Duration(0), h.audio.Position())
}

func TestSynchronizer_EndedWithoutAutoplayPauses(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"))
	require.NoError(t, h.store.SetMode(domain.ModeAutoplay, false))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventEnded})
	h.syn.Settle()

	assert.Equal(t, "a", h.current())
	assert.False(t, h.store.State().IsPlaying)
	assert.Equal(t, time.Duration(0), h.syn.CurrentTime())
}

func TestSynchronizer_RepairsCurrentTrack(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"), audioTrack("c", "C", "x"))
	h.store.PlayTrack("b")
	h.syn.Settle()

	h.store.ToggleFavorite("c")
	h.store.ToggleFavorite("a")
	h.store.SetActivePlaylist(domain.PlaylistFavorites)
	h.syn.Settle()

	st := h.store.State()
	assert.Equal(t, "a", st.CurrentTrackID)
	assert.True(t, st.IsPlaying, "repair keeps the transport intent")
	assert.Equal(t, "a", h.audio.LoadedTrackID())
}

func TestSynchronizer_EmptyPlayBaseStopsPlaying(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "Alpha", "x"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.store.SetSearchFilter("no such track")
	h.syn.Settle()

	assert.False(t, h.store.State().IsPlaying)
	assert.False(t, h.audio.IsPlaying())
}

func TestSynchronizer_RepairSelectsWhenNothingSelected(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"), audioTrack("b", "B", "x"))

	h.store.SetCurrentTrack("")
	h.syn.Settle()

	assert.Equal(t, "a", h.current())
}

func TestSynchronizer_Seek(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))

	h.syn.Seek(42 * time.Second)
	h.syn.Settle()
	assert.Equal(t, 42*time.Second, h.audio.Position())
	assert.Equal(t, 42*time.Second, h.syn.CurrentTime())

	h.syn.Seek(10 * time.Minute)
	h.syn.Settle()
	assert.Equal(t, mock.DefaultDuration, h.syn.CurrentTime())

	h.syn.Seek(-time.Second)
	h.syn.Settle()
	assert.Equal(t, time.Duration(0), h.syn.CurrentTime())

	h.syn.SeekForward()
	h.syn.SeekForward()
	h.syn.SeekBackward()
	h.syn.Settle()
	assert.Equal(t, 5*time.Second, h.audio.Position())
}

func TestSynchronizer_ExternalPauseUpdatesIntent(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(youtubeTrack("y", "vid"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.widget.Emit(domain.BackendEvent{Kind: domain.BackendEventPaused})
	h.syn.Settle()
	assert.False(t, h.store.State().IsPlaying)

	h.widget.Emit(domain.BackendEvent{Kind: domain.BackendEventPlaying})
	h.syn.Settle()
	assert.True(t, h.store.State().IsPlaying)
}

func TestSynchronizer_WidgetInitFailure(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventPlayerError, domain.EventPlayerErrorCleared)
	h.widget.SetFailLoad(errors.New("script blocked"))

	h.queue(youtubeTrack("y1", "vid1"), youtubeTrack("y2", "vid2"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	assert.False(t, h.store.State().IsPlaying)
	status, _ := h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendFailed, status.State)
	require.Equal(t, 1, rec.count(domain.EventPlayerError))
	errEvent := rec.all()[0].(domain.PlayerErrorEvent)
	assert.Equal(t, MsgWidgetInitFailed, errEvent.Message)
	assert.Equal(t, domain.ErrorSourcePlayer, errEvent.Source)

	// Play stays a no-op on the failed track.
	require.NoError(t, h.syn.Play())
	h.syn.Settle()
	assert.False(t, h.widget.IsPlaying())

	// A later switch works.
	h.widget.SetFailLoad(nil)
	h.store.PlayTrack("y2")
	h.syn.Settle()

	status, _ = h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendPlaying, status.State)
	assert.Equal(t, "y2", status.TrackID)
	assert.Equal(t, 1, rec.count(domain.EventPlayerErrorCleared))
}

func TestSynchronizer_WidgetPlaybackFailure(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventPlayerError)
	h.queue(youtubeTrack("y", "vid"), youtubeTrack("z", "vid2"))
	require.NoError(t, h.syn.Play())
	h.syn.Settle()

	h.widget.Emit(domain.BackendEvent{Kind: domain.BackendEventFailed, Err: errors.New("150")})
	h.syn.Settle()

	assert.False(t, h.store.State().IsPlaying)
	assert.Equal(t, "y", h.current(), "errors do not auto-advance")
	require.Len(t, rec.all(), 1)
	assert.Equal(t, MsgWidgetPlayFailed, rec.all()[0].(domain.PlayerErrorEvent).Message)
}

func TestSynchronizer_NativeLoadFailureIsPassive(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventPlayerError)
	h.audio.SetFailLoad(errors.New("404"))

	h.queue(audioTrack("a", "A", "x"))

	status, ok := h.syn.ActiveBackend()
	require.True(t, ok)
	assert.Equal(t, domain.BackendIdle, status.State)
	assert.Empty(t, rec.all())
}

func TestSynchronizer_SwitchDuringInFlightLoad(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventPlayerError, domain.EventTrackEnded)
	h.widget.BlockLoads()

	h.store.SetQueue([]domain.Track{youtubeTrack("y", "vid"), audioTrack("a", "A", "x")})
	<-h.widget.LoadStarted()
	require.NoError(t, h.syn.Play())

	h.store.SetCurrentTrack("a")
	require.Eventually(t, func() bool {
		status, ok := h.syn.ActiveBackend()
		return ok && status.TrackID == "a" && status.State == domain.BackendPlaying
	}, time.Second, 5*time.Millisecond)

	// The superseded widget setup completes late and reports through its listener.
	h.widget.ReleaseLoads()
	h.syn.Settle()
	h.widget.Listener(0)(domain.BackendEvent{Kind: domain.BackendEventEnded})
	h.widget.Listener(0)(domain.BackendEvent{Kind: domain.BackendEventPaused})
	h.syn.Settle()

	status, _ := h.syn.ActiveBackend()
	assert.Equal(t, domain.BackendNativeAudio, status.Kind)
	assert.Equal(t, "a", status.TrackID)
	st := h.store.State()
	assert.Equal(t, "a", st.CurrentTrackID)
	assert.True(t, st.IsPlaying)
	assert.True(t, h.audio.IsPlaying())
	assert.False(t, h.widget.IsPlaying())
	assert.Empty(t, rec.all())
}

func TestSynchronizer_LatestSwitchWinsOnSameBackend(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.widget.BlockLoads()

	h.store.SetQueue([]domain.Track{youtubeTrack("y1", "v1"), youtubeTrack("y2", "v2")})
	<-h.widget.LoadStarted()
	h.store.SetCurrentTrack("y2")
	<-h.widget.LoadStarted()

	h.widget.ReleaseLoads()
	h.syn.Settle()

	status, ok := h.syn.ActiveBackend()
	require.True(t, ok)
	assert.Equal(t, "y2", status.TrackID)
	assert.Equal(t, domain.BackendReady, status.State)
}

func TestSynchronizer_PollsWidgetClock(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness(WithPollInterval(5 * time.Millisecond))
	defer h.syn.Shutdown()
	rec := recordEvents(h.bus, domain.EventClockUpdated)

	h.queue(youtubeTrack("y", "vid"), audioTrack("a", "A", "x"))
	h.widget.SetPosition(17 * time.Second)

	require.Eventually(t, func() bool {
		return h.syn.CurrentTime() == 17*time.Second
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, mock.DefaultDuration, h.syn.Duration())

	h.store.SetCurrentTrack("a")
	h.syn.Settle()

	widgetTicks := func() int {
		n := 0
		for _, e := range rec.all() {
			if e.(domain.ClockUpdatedEvent).TrackID == "y" {
				n++
			}
		}
		return n
	}
	before := widgetTicks()
	h.widget.SetPosition(30 * time.Second)
	time.Sleep(30 * time.Millisecond)
	h.syn.Settle()

	assert.Equal(t, before, widgetTicks(), "poller must stop when the widget is superseded")
	assert.Equal(t, time.Duration(0), h.syn.CurrentTime())
}

func TestSynchronizer_NativeBackendsAreNotPolled(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness(WithPollInterval(5 * time.Millisecond))
	defer h.syn.Shutdown()

	h.queue(audioTrack("a", "A", "x"))
	h.audio.SetPosition(9 * time.Second)
	time.Sleep(30 * time.Millisecond)
	h.syn.Settle()
	assert.Equal(t, time.Duration(0), h.syn.CurrentTime())

	h.audio.Emit(domain.BackendEvent{Kind: domain.BackendEventClock, Position: 11 * time.Second, Duration: time.Minute})
	h.syn.Settle()
	assert.Equal(t, 11*time.Second, h.syn.CurrentTime())
	assert.Equal(t, time.Minute, h.syn.Duration())
}

func TestSynchronizer_ClearingQueueDeactivates(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness()
	defer h.syn.Shutdown()
	h.queue(audioTrack("a", "A", "x"))

	h.store.SetCurrentTrack("")
	h.store.SetQueue(nil)
	h.syn.Settle()

	_, ok := h.syn.ActiveBackend()
	assert.False(t, ok)
	assert.Empty(t, h.audio.LoadedTrackID())
}

func TestSynchronizer_MissingBackend(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	bus := eventbus.NewSyncEventBus()
	log := logger.NewTestLogger()
	store := NewStateStore(log, bus)
	audio := mock.NewBackend(domain.BackendNativeAudio)
	syn := NewSynchronizer(log, store, bus, []ports.MediaBackend{audio})
	defer syn.Shutdown()
	rec := recordEvents(bus, domain.EventPlayerError)

	store.SetQueue([]domain.Track{youtubeTrack("y", "vid")})
	store.SetPlaying(true)
	syn.Settle()
	store.SetVolume(0.5)
	syn.Settle()

	assert.False(t, store.State().IsPlaying)
	assert.Equal(t, 1, rec.count(domain.EventPlayerError))
}

func TestSynchronizer_ShutdownIsIdempotent(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newSyncHarness(WithPollInterval(5 * time.Millisecond))
	h.queue(youtubeTrack("y", "vid"))

	h.syn.Shutdown()
	h.syn.Shutdown()

	assert.Empty(t, h.widget.LoadedTrackID())
	// Intents after shutdown are ignored.
	h.store.SetCurrentTrack("")
	h.syn.Settle()
}
