// Package service provides the business logic of the Nuvé player.
package service

import (
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// Intent names carried by StateChangedEvent.
const (
	IntentSetQueue                = "setQueue"
	IntentAddTracks               = "addTracks"
	IntentHydrate                 = "hydrate"
	IntentCreatePlaylist          = "createPlaylist"
	IntentDeletePlaylist          = "deletePlaylist"
	IntentAddTrackToPlaylist      = "addTrackToPlaylist"
	IntentRemoveTrackFromPlaylist = "removeTrackFromPlaylist"
	IntentSetCurrentTrack         = "setCurrentTrack"
	IntentSetPlaying              = "setPlaying"
	IntentPlayTrack               = "playTrack"
	IntentSetVolume               = "setVolume"
	IntentToggleFavorite          = "toggleFavorite"
	IntentSetStreamQuality        = "setStreamQuality"
	IntentSetEqualizerBand        = "setEqualizerBand"
	IntentSetActivePlaylist       = "setActivePlaylist"
	IntentSetMode                 = "setMode"
	IntentSetSearchFilter         = "setSearchFilter"
)

// StateStore owns the canonical player state and applies intents atomically.
// Every transition that changes the state bumps the revision and publishes a
// StateChangedEvent carrying a copy of the new state. Intents that change
// nothing publish nothing.
//
// Thread-safety: all methods are safe for concurrent use; each intent is
// applied under one lock, so no partial transition is ever observable.
type StateStore struct {
	logger *slog.Logger
	bus    ports.EventBus

	mu       sync.RWMutex
	state    domain.PlayerState
	revision uint64

	newID func() string
}

// NewStateStore creates a store holding the state of a fresh session.
func NewStateStore(logger *slog.Logger, bus ports.EventBus) *StateStore {
	return &StateStore{
		logger: logger.With(slog.String("service", "state")),
		bus:    bus,
		state:  domain.NewPlayerState(),
		newID: func() string {
			return "pl-" + uuid.NewString()
		},
	}
}

// apply runs fn on the state under the write lock. fn reports whether it
// changed anything. The event is published after the lock is released.
func (s *StateStore) apply(intent string, fn func(state *domain.PlayerState) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.revision++
	rev := s.revision
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.logger.Debug("state changed", slog.String("intent", intent), slog.Uint64("revision", rev))
	s.bus.Publish(domain.NewStateChangedEvent(intent, rev, snapshot))
	return true
}

// SetQueue replaces the queue. If no track is selected, the first track of
// the new queue becomes current.
func (s *StateStore) SetQueue(tracks []domain.Track) {
	s.apply(IntentSetQueue, func(st *domain.PlayerState) bool {
		st.Queue = dedupeTracks(nil, tracks)
		if st.CurrentTrackID == "" && len(st.Queue) > 0 {
			st.CurrentTrackID = st.Queue[0].ID
		}
		return true
	})
}

// AddTracks appends the tracks whose id is not queued yet, keeping the
// existing order. It returns the number of tracks added.
func (s *StateStore) AddTracks(tracks []domain.Track) int {
	added := 0
	s.apply(IntentAddTracks, func(st *domain.PlayerState) bool {
		before := len(st.Queue)
		st.Queue = dedupeTracks(st.Queue, tracks)
		added = len(st.Queue) - before
		return added > 0
	})
	return added
}

// AddTrack appends a single track unless it is already queued.
func (s *StateStore) AddTrack(track domain.Track) bool {
	return s.AddTracks([]domain.Track{track}) == 1
}

// dedupeTracks appends to queue every track of incoming whose id is new,
// including ids repeated within incoming.
func dedupeTracks(queue, incoming []domain.Track) []domain.Track {
	seen := make(map[string]struct{}, len(queue)+len(incoming))
	out := make([]domain.Track, 0, len(queue)+len(incoming))
	for _, t := range queue {
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, t := range incoming {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Hydrate merges the fields present in prefs into the state. Absent fields
// keep their current values.
func (s *StateStore) Hydrate(prefs domain.Preferences) {
	s.apply(IntentHydrate, func(st *domain.PlayerState) bool {
		if prefs.IsEmpty() {
			return false
		}
		prefs.MergeInto(st)
		return true
	})
}

// CreatePlaylist creates an empty playlist and makes it active.
// A blank name is ignored and reported with ok=false.
func (s *StateStore) CreatePlaylist(name string) (id string, ok bool) {
	name = domain.NormalizePlaylistName(name)
	if name == "" {
		return "", false
	}

	id = s.newID()
	s.apply(IntentCreatePlaylist, func(st *domain.PlayerState) bool {
		st.Playlists = append(st.Playlists, domain.Playlist{ID: id, Name: name, TrackIDs: []string{}})
		st.ActivePlaylistID = id
		return true
	})
	return id, true
}

// DeletePlaylist removes a playlist. If it was active, "all" becomes active.
func (s *StateStore) DeletePlaylist(id string) {
	s.apply(IntentDeletePlaylist, func(st *domain.PlayerState) bool {
		idx := slices.IndexFunc(st.Playlists, func(p domain.Playlist) bool { return p.ID == id })
		if idx < 0 {
			return false
		}
		st.Playlists = slices.Delete(st.Playlists, idx, idx+1)
		if st.ActivePlaylistID == id {
			st.ActivePlaylistID = domain.PlaylistAll
		}
		return true
	})
}

// AddTrackToPlaylist adds a track to a playlist. Adding a member twice or
// targeting a missing playlist changes nothing.
func (s *StateStore) AddTrackToPlaylist(playlistID, trackID string) {
	s.apply(IntentAddTrackToPlaylist, func(st *domain.PlayerState) bool {
		p := findPlaylist(st, playlistID)
		if p == nil || p.Contains(trackID) {
			return false
		}
		p.TrackIDs = append(p.TrackIDs, trackID)
		return true
	})
}

// RemoveTrackFromPlaylist removes a track from a playlist. Missing members
// and missing playlists change nothing.
func (s *StateStore) RemoveTrackFromPlaylist(playlistID, trackID string) {
	s.apply(IntentRemoveTrackFromPlaylist, func(st *domain.PlayerState) bool {
		p := findPlaylist(st, playlistID)
		if p == nil {
			return false
		}
		idx := slices.Index(p.TrackIDs, trackID)
		if idx < 0 {
			return false
		}
		p.TrackIDs = slices.Delete(p.TrackIDs, idx, idx+1)
		return true
	})
}

func findPlaylist(st *domain.PlayerState, id string) *domain.Playlist {
	for i := range st.Playlists {
		if st.Playlists[i].ID == id {
			return &st.Playlists[i]
		}
	}
	return nil
}

// SetCurrentTrack selects a track. An empty id clears the selection.
func (s *StateStore) SetCurrentTrack(id string) {
	s.apply(IntentSetCurrentTrack, func(st *domain.PlayerState) bool {
		if st.CurrentTrackID == id {
			return false
		}
		st.CurrentTrackID = id
		return true
	})
}

// SetPlaying sets the transport intent.
func (s *StateStore) SetPlaying(playing bool) {
	s.apply(IntentSetPlaying, func(st *domain.PlayerState) bool {
		if st.IsPlaying == playing {
			return false
		}
		st.IsPlaying = playing
		return true
	})
}

// PlayTrack selects a track and sets the playing intent in one transition.
func (s *StateStore) PlayTrack(id string) {
	s.apply(IntentPlayTrack, func(st *domain.PlayerState) bool {
		if st.CurrentTrackID == id && st.IsPlaying {
			return false
		}
		st.CurrentTrackID = id
		st.IsPlaying = true
		return true
	})
}

// SetVolume stores the requested volume as is. Clamping happens when the
// volume is applied to a backend. NaN is not a volume and is ignored.
func (s *StateStore) SetVolume(volume float64) {
	if math.IsNaN(volume) {
		return
	}
	s.apply(IntentSetVolume, func(st *domain.PlayerState) bool {
		if st.Volume == volume {
			return false
		}
		st.Volume = volume
		return true
	})
}

// ToggleFavorite adds or removes a track from the favorites.
func (s *StateStore) ToggleFavorite(id string) {
	s.apply(IntentToggleFavorite, func(st *domain.PlayerState) bool {
		if idx := slices.Index(st.Favorites, id); idx >= 0 {
			st.Favorites = slices.Delete(st.Favorites, idx, idx+1)
		} else {
			st.Favorites = append(st.Favorites, id)
		}
		return true
	})
}

// SetStreamQuality selects the source quality of internal tracks.
func (s *StateStore) SetStreamQuality(quality domain.StreamQuality) error {
	if !quality.Valid() {
		return domain.NewValidationError("streamQuality", quality, "unknown stream quality")
	}
	s.apply(IntentSetStreamQuality, func(st *domain.PlayerState) bool {
		if st.StreamQuality == quality {
			return false
		}
		st.StreamQuality = quality
		return true
	})
	return nil
}

// SetEqualizerBand sets one band level, clamped to 0-100.
func (s *StateStore) SetEqualizerBand(band domain.EqualizerBand, value float64) error {
	var err error
	s.apply(IntentSetEqualizerBand, func(st *domain.PlayerState) bool {
		eq := st.Equalizer
		if err = eq.Set(band, value); err != nil || eq == st.Equalizer {
			return false
		}
		st.Equalizer = eq
		return true
	})
	return err
}

// SetActivePlaylist selects the play-base: "all", "favorites" or a playlist id.
func (s *StateStore) SetActivePlaylist(id string) {
	s.apply(IntentSetActivePlaylist, func(st *domain.PlayerState) bool {
		if st.ActivePlaylistID == id {
			return false
		}
		st.ActivePlaylistID = id
		return true
	})
}

// SetMode sets one of the playback toggles.
func (s *StateStore) SetMode(mode domain.Mode, enabled bool) error {
	var err error
	s.apply(IntentSetMode, func(st *domain.PlayerState) bool {
		modes := st.Modes
		if err = modes.Set(mode, enabled); err != nil || modes == st.Modes {
			return false
		}
		st.Modes = modes
		return true
	})
	return err
}

// ToggleMode flips one of the playback toggles.
func (s *StateStore) ToggleMode(mode domain.Mode) error {
	var err error
	s.apply(IntentSetMode, func(st *domain.PlayerState) bool {
		err = st.Modes.Set(mode, !st.Modes.Get(mode))
		return err == nil
	})
	return err
}

// SetSearchFilter restricts the play-base by free text.
func (s *StateStore) SetSearchFilter(filter string) {
	s.apply(IntentSetSearchFilter, func(st *domain.PlayerState) bool {
		if st.SearchFilter == filter {
			return false
		}
		st.SearchFilter = filter
		return true
	})
}

// State returns a copy of the current state.
func (s *StateStore) State() domain.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Revision returns the number of transitions applied so far.
func (s *StateStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// PlayBase returns the tracks that are playable right now.
func (s *StateStore) PlayBase() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PlayBase()
}

// CurrentTrack returns the selected track, if any.
func (s *StateStore) CurrentTrack() (domain.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentTrack()
}

// ActivePlaylist returns the active stored playlist, if one is active.
func (s *StateStore) ActivePlaylist() (domain.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.ActivePlaylist()
	return p.Clone(), ok
}

// Snapshot returns the persisted projection of the state.
func (s *StateStore) Snapshot() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.PreferencesOf(s.state)
}
