package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuveplayer/nuve/internal/domain"
)

func TestStateStore_NewState(t *testing.T) {
	store, _ := newTestStore()

	st := store.State()
	assert.Empty(t, st.Queue)
	assert.Empty(t, st.CurrentTrackID)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, domain.DefaultVolume, st.Volume)
	assert.Equal(t, domain.QualityHigh, st.StreamQuality)
	assert.Equal(t, domain.PlaylistAll, st.ActivePlaylistID)
	assert.Equal(t, domain.DefaultEqualizer(), st.Equalizer)
	assert.True(t, st.Modes.Autoplay)
	assert.False(t, st.Modes.Loop)
	assert.Zero(t, store.Revision())
}

func TestStateStore_SetQueue_SelectsFirst(t *testing.T) {
	store, bus := newTestStore()
	rec := recordEvents(bus, domain.EventStateChanged)

	store.SetQueue([]domain.Track{audioTrack("a", "A", "x"), audioTrack("b", "B", "y")})

	st := store.State()
	require.Len(t, st.Queue, 2)
	assert.Equal(t, "a", st.CurrentTrackID)
	require.Len(t, rec.all(), 1)

	e := rec.all()[0].(domain.StateChangedEvent)
	assert.Equal(t, IntentSetQueue, e.Intent)
	assert.Equal(t, uint64(1), e.Revision)
	assert.Equal(t, "a", e.State.CurrentTrackID)
}

func TestStateStore_SetQueue_KeepsSelection(t *testing.T) {
	store, _ := newTestStore()
	store.SetCurrentTrack("b")

	store.SetQueue([]domain.Track{audioTrack("a", "A", "x"), audioTrack("b", "B", "y")})

	assert.Equal(t, "b", store.State().CurrentTrackID)
}

func TestStateStore_AddTracks_Dedupes(t *testing.T) {
	store, _ := newTestStore()
	store.SetQueue([]domain.Track{audioTrack("a", "A", "x"), audioTrack("b", "B", "y")})

	added := store.AddTracks([]domain.Track{
		audioTrack("b", "B again", "y"),
		audioTrack("c", "C", "z"),
		audioTrack("c", "C twice", "z"),
	})

	assert.Equal(t, 1, added)
	ids := []string{}
	for _, tr := range store.State().Queue {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "B", store.State().Queue[1].Title)
}

func TestStateStore_AddTrack_NoChangeNoEvent(t *testing.T) {
	store, bus := newTestStore()
	store.AddTrack(audioTrack("a", "A", "x"))
	rec := recordEvents(bus, domain.EventStateChanged)

	assert.False(t, store.AddTrack(audioTrack("a", "A", "x")))
	assert.Empty(t, rec.all())
}

func TestStateStore_Hydrate_PartialMerge(t *testing.T) {
	store, _ := newTestStore()

	store.Hydrate(domain.Preferences{Favorites: []string{"a", "b"}})
	eq := domain.Equalizer{Bass: 10, Mid: 20, Treble: 30}
	store.Hydrate(domain.Preferences{Equalizer: &eq})

	st := store.State()
	assert.Equal(t, []string{"a", "b"}, st.Favorites)
	assert.Equal(t, eq, st.Equalizer)
	assert.Equal(t, domain.DefaultVolume, st.Volume)
}

func TestStateStore_Hydrate_NullCurrentTrack(t *testing.T) {
	store, _ := newTestStore()
	store.SetCurrentTrack("a")

	store.Hydrate(domain.Preferences{CurrentTrackID: domain.NullID()})

	assert.Empty(t, store.State().CurrentTrackID)
}

func TestStateStore_CreatePlaylist(t *testing.T) {
	store, _ := newTestStore()

	id, ok := store.CreatePlaylist("  Road trip ")
	require.True(t, ok)

	st := store.State()
	require.Len(t, st.Playlists, 1)
	assert.Equal(t, id, st.Playlists[0].ID)
	assert.Equal(t, "Road trip", st.Playlists[0].Name)
	assert.Empty(t, st.Playlists[0].TrackIDs)
	assert.Equal(t, id, st.ActivePlaylistID)
	assert.Contains(t, id, "pl-")

	other, ok := store.CreatePlaylist("Road trip")
	require.True(t, ok)
	assert.NotEqual(t, id, other)
}

func TestStateStore_CreatePlaylist_BlankName(t *testing.T) {
	store, bus := newTestStore()
	rec := recordEvents(bus, domain.EventStateChanged)

	_, ok := store.CreatePlaylist("  ")

	assert.False(t, ok)
	st := store.State()
	assert.Empty(t, st.Playlists)
	assert.Equal(t, domain.PlaylistAll, st.ActivePlaylistID)
	assert.Empty(t, rec.all())
}

func TestStateStore_DeletePlaylist(t *testing.T) {
	store, _ := newTestStore()
	keep, _ := store.CreatePlaylist("keep")
	drop, _ := store.CreatePlaylist("drop")

	store.DeletePlaylist(drop)

	st := store.State()
	require.Len(t, st.Playlists, 1)
	assert.Equal(t, keep, st.Playlists[0].ID)
	assert.Equal(t, domain.PlaylistAll, st.ActivePlaylistID)

	store.SetActivePlaylist(domain.PlaylistFavorites)
	store.DeletePlaylist(keep)
	assert.Equal(t, domain.PlaylistFavorites, store.State().ActivePlaylistID)
}

func TestStateStore_PlaylistMembership(t *testing.T) {
	store, _ := newTestStore()
	id, _ := store.CreatePlaylist("mix")

	store.AddTrackToPlaylist(id, "a")
	store.AddTrackToPlaylist(id, "b")
	store.AddTrackToPlaylist(id, "a")
	store.AddTrackToPlaylist("missing", "a")

	p, ok := store.ActivePlaylist()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, p.TrackIDs)

	store.RemoveTrackFromPlaylist(id, "a")
	store.RemoveTrackFromPlaylist(id, "a")
	store.RemoveTrackFromPlaylist("missing", "b")

	p, _ = store.ActivePlaylist()
	assert.Equal(t, []string{"b"}, p.TrackIDs)
}

func TestStateStore_ToggleFavorite(t *testing.T) {
	store, _ := newTestStore()

	store.ToggleFavorite("a")
	store.ToggleFavorite("b")
	assert.Equal(t, []string{"a", "b"}, store.State().Favorites)

	store.ToggleFavorite("a")
	assert.Equal(t, []string{"b"}, store.State().Favorites)
}

func TestStateStore_SetVolume_Unclamped(t *testing.T) {
	store, _ := newTestStore()

	store.SetVolume(1.7)
	assert.Equal(t, 1.7, store.State().Volume)

	store.SetVolume(-0.2)
	assert.Equal(t, -0.2, store.State().Volume)
}

func TestStateStore_SetVolume_IgnoresNaN(t *testing.T) {
	store, _ := newTestStore()
	store.SetVolume(0.4)
	revision := store.Revision()

	store.SetVolume(math.NaN())
	assert.Equal(t, 0.4, store.State().Volume)
	assert.Equal(t, revision, store.Revision())
}

func TestStateStore_SetStreamQuality(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.SetStreamQuality(domain.QualityLow))
	assert.Equal(t, domain.QualityLow, store.State().StreamQuality)

	err := store.SetStreamQuality("ultra")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.QualityLow, store.State().StreamQuality)
}

func TestStateStore_SetEqualizerBand(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.SetEqualizerBand(domain.BandMid, 12))
	require.NoError(t, store.SetEqualizerBand(domain.BandTreble, 140))
	require.Error(t, store.SetEqualizerBand("sub", 10))

	eq := store.State().Equalizer
	assert.Equal(t, 65.0, eq.Bass)
	assert.Equal(t, 12.0, eq.Mid)
	assert.Equal(t, 100.0, eq.Treble)
}

func TestStateStore_Modes(t *testing.T) {
	store, _ := newTestStore()

	require.NoError(t, store.SetMode(domain.ModeLoop, true))
	require.NoError(t, store.ToggleMode(domain.ModeAutoplay))
	require.Error(t, store.ToggleMode("karaoke"))

	modes := store.State().Modes
	assert.True(t, modes.Loop)
	assert.False(t, modes.Autoplay)
	assert.True(t, modes.Visualizer)
}

func TestStateStore_PlayTrack(t *testing.T) {
	store, bus := newTestStore()
	store.SetQueue([]domain.Track{audioTrack("a", "A", "x"), audioTrack("b", "B", "y")})
	rec := recordEvents(bus, domain.EventStateChanged)

	store.PlayTrack("b")

	st := store.State()
	assert.Equal(t, "b", st.CurrentTrackID)
	assert.True(t, st.IsPlaying)
	require.Len(t, rec.all(), 1)
}

func TestStateStore_StateIsACopy(t *testing.T) {
	store, _ := newTestStore()
	store.SetQueue([]domain.Track{audioTrack("a", "A", "x")})
	store.ToggleFavorite("a")

	st := store.State()
	st.Queue[0].Title = "mutated"
	st.Favorites[0] = "zzz"

	assert.Equal(t, "A", store.State().Queue[0].Title)
	assert.Equal(t, []string{"a"}, store.State().Favorites)
}

func TestStateStore_PlayBase(t *testing.T) {
	store, _ := newTestStore()
	store.SetQueue([]domain.Track{
		audioTrack("a", "Sunrise", "Aurora"),
		audioTrack("b", "Night Drive", "Kavinsky"),
		audioTrack("c", "Sunset", "Aurora"),
	})
	store.ToggleFavorite("c")
	store.ToggleFavorite("a")

	store.SetActivePlaylist(domain.PlaylistFavorites)
	base := store.PlayBase()
	require.Len(t, base, 2)
	assert.Equal(t, "a", base[0].ID)
	assert.Equal(t, "c", base[1].ID)

	store.SetSearchFilter("  SUNSET ")
	base = store.PlayBase()
	require.Len(t, base, 1)
	assert.Equal(t, "c", base[0].ID)
}

func TestStateStore_Snapshot(t *testing.T) {
	store, _ := newTestStore()
	store.SetQueue([]domain.Track{audioTrack("a", "A", "x")})

	snap := store.Snapshot()
	require.NotNil(t, snap.Volume)
	assert.Equal(t, domain.DefaultVolume, *snap.Volume)
	assert.Equal(t, domain.SomeID("a"), snap.CurrentTrackID)
	assert.Equal(t, []string{}, snap.Favorites)
	require.NotNil(t, snap.LoopMode)
	assert.False(t, *snap.LoopMode)
}
