// Package domain contains core business models and logic.
// This package defines the fundamental entities of the Nuvé media player.
package domain

import (
	"fmt"
	"slices"
	"strings"
)

// MediaType tells whether a track is rendered as audio or video.
type MediaType string

// Media types.
const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// SourceKind tells where the playable media of a track lives.
type SourceKind string

// Source kinds.
const (
	SourceInternal SourceKind = "internal"
	SourceYouTube  SourceKind = "youtube"
)

// StreamQuality selects one of the per-quality source URLs of a track.
type StreamQuality string

// Stream qualities.
const (
	QualityLow    StreamQuality = "low"
	QualityMedium StreamQuality = "medium"
	QualityHigh   StreamQuality = "high"
)

// Qualities lists the stream qualities from lowest to highest.
func Qualities() []StreamQuality {
	return []StreamQuality{QualityLow, QualityMedium, QualityHigh}
}

// Valid reports whether q is a known quality.
func (q StreamQuality) Valid() bool {
	return slices.Contains(Qualities(), q)
}

// Reserved playlist identifiers. These are selectors, never stored playlists.
const (
	PlaylistAll       = "all"
	PlaylistFavorites = "favorites"
)

// IsReservedPlaylist reports whether id is one of the pseudo playlists.
func IsReservedPlaylist(id string) bool {
	return id == PlaylistAll || id == PlaylistFavorites
}

// Track represents a single playable item (audio or video).
// This is the core domain model of the queue.
type Track struct {
	// ID is a unique identifier for the track
	ID string `json:"id"`

	// Title is the display title
	Title string `json:"title"`

	// Artist is the performing artist or channel name
	Artist string `json:"artist"`

	// MediaType is audio or video
	MediaType MediaType `json:"mediaType"`

	// CoverURL points to the cover artwork
	CoverURL string `json:"coverUrl"`

	// VideoPoster is an optional poster image for video tracks
	VideoPoster string `json:"videoPoster,omitempty"`

	// Sources maps each quality to a playable URL (empty for youtube tracks)
	Sources map[StreamQuality]string `json:"sources"`

	// Kind is internal or youtube; empty means internal
	Kind SourceKind `json:"sourceKind,omitempty"`

	// YouTubeVideoID is the external video identifier for youtube tracks
	YouTubeVideoID string `json:"youtubeVideoId,omitempty"`

	// ExternalURL links to the track on its origin site
	ExternalURL string `json:"externalUrl,omitempty"`
}

// SourceKind returns the effective source kind of the track.
func (t Track) SourceKind() SourceKind {
	if t.Kind == "" {
		return SourceInternal
	}
	return t.Kind
}

// IsYouTube reports whether the track plays through the embedded widget.
func (t Track) IsYouTube() bool {
	return t.SourceKind() == SourceYouTube && t.YouTubeVideoID != ""
}

// Source returns the playable URL for the given quality, falling back to the
// high quality URL. YouTube tracks have no URL.
func (t Track) Source(quality StreamQuality) string {
	if t.IsYouTube() {
		return ""
	}
	if src := t.Sources[quality]; src != "" {
		return src
	}
	return t.Sources[QualityHigh]
}

// SearchText is the text the free-text filter matches against.
func (t Track) SearchText() string {
	return t.Title + " " + t.Artist
}

// Validate checks the source invariants of the track.
func (t Track) Validate() error {
	if t.ID == "" {
		return NewValidationError("id", t.ID, "track id is required")
	}

	switch t.SourceKind() {
	case SourceYouTube:
		if t.YouTubeVideoID == "" {
			return NewValidationError("youtubeVideoId", t.YouTubeVideoID, "youtube track requires a video id")
		}
		for q, src := range t.Sources {
			if src != "" {
				return NewValidationError("sources", q, "youtube track must not carry quality URLs")
			}
		}
	case SourceInternal:
		hasSource := false
		for _, src := range t.Sources {
			if src != "" {
				hasSource = true
				break
			}
		}
		if !hasSource {
			return NewValidationError("sources", t.ID, "internal track requires at least one source URL")
		}
	default:
		return NewValidationError("sourceKind", t.Kind, "unknown source kind")
	}

	return nil
}

// String returns "Artist - Title" for logs and labels.
func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Playlist is a named, ordered set of track identifiers.
type Playlist struct {
	// ID is a unique identifier for the playlist
	ID string `json:"id"`

	// Name is the playlist name
	Name string `json:"name"`

	// TrackIDs holds track identifiers in insertion order, without duplicates
	TrackIDs []string `json:"trackIds"`
}

// Contains reports whether the playlist holds trackID.
func (p Playlist) Contains(trackID string) bool {
	return slices.Contains(p.TrackIDs, trackID)
}

// Clone returns a deep copy of the playlist.
func (p Playlist) Clone() Playlist {
	p.TrackIDs = slices.Clone(p.TrackIDs)
	if p.TrackIDs == nil {
		p.TrackIDs = []string{}
	}
	return p
}

// EqualizerBand names one of the three equalizer bands.
type EqualizerBand string

// Equalizer bands.
const (
	BandBass   EqualizerBand = "bass"
	BandMid    EqualizerBand = "mid"
	BandTreble EqualizerBand = "treble"
)

// Equalizer holds three independent band levels, each 0-100.
type Equalizer struct {
	Bass   float64 `json:"bass"`
	Mid    float64 `json:"mid"`
	Treble float64 `json:"treble"`
}

// DefaultEqualizer returns the initial band levels.
func DefaultEqualizer() Equalizer {
	return Equalizer{Bass: 65, Mid: 55, Treble: 60}
}

// Set updates a single band, clamping the level to 0-100.
func (e *Equalizer) Set(band EqualizerBand, value float64) error {
	value = min(max(value, 0), 100)
	switch band {
	case BandBass:
		e.Bass = value
	case BandMid:
		e.Mid = value
	case BandTreble:
		e.Treble = value
	default:
		return NewValidationError("band", band, "unknown equalizer band")
	}
	return nil
}

// Mode names one of the UI playback toggles.
type Mode string

// Modes.
const (
	ModeAutoplay   Mode = "autoplay"
	ModeLoop       Mode = "loop"
	ModeShuffle    Mode = "shuffle"
	ModeTheater    Mode = "theater"
	ModeVisualizer Mode = "visualizer"
)

// Modes holds the UI playback toggles.
type Modes struct {
	Autoplay   bool
	Loop       bool
	Shuffle    bool
	Theater    bool
	Visualizer bool
}

// DefaultModes returns the toggles of a fresh session.
func DefaultModes() Modes {
	return Modes{Autoplay: true, Visualizer: true}
}

// Get returns the value of a single toggle.
func (m Modes) Get(mode Mode) bool {
	switch mode {
	case ModeAutoplay:
		return m.Autoplay
	case ModeLoop:
		return m.Loop
	case ModeShuffle:
		return m.Shuffle
	case ModeTheater:
		return m.Theater
	case ModeVisualizer:
		return m.Visualizer
	}
	return false
}

// Set updates a single toggle.
func (m *Modes) Set(mode Mode, enabled bool) error {
	switch mode {
	case ModeAutoplay:
		m.Autoplay = enabled
	case ModeLoop:
		m.Loop = enabled
	case ModeShuffle:
		m.Shuffle = enabled
	case ModeTheater:
		m.Theater = enabled
	case ModeVisualizer:
		m.Visualizer = enabled
	default:
		return NewValidationError("mode", mode, "unknown mode")
	}
	return nil
}

// DefaultVolume is the volume of a fresh session.
const DefaultVolume = 0.8

// PlayerState is the canonical session state.
// It is owned by the state store and handed out as copies.
type PlayerState struct {
	// Queue is the ordered list of known tracks
	Queue []Track

	// CurrentTrackID is the selected track; empty means nothing selected
	CurrentTrackID string

	// IsPlaying is the transport intent
	IsPlaying bool

	// Volume is the requested volume; clamping happens when it is applied
	Volume float64

	// Favorites holds favorite track ids in the order they were added
	Favorites []string

	// StreamQuality selects the source URL of internal tracks
	StreamQuality StreamQuality

	// Equalizer holds the band levels
	Equalizer Equalizer

	// Playlists are the user playlists
	Playlists []Playlist

	// ActivePlaylistID is a reserved id or a playlist id
	ActivePlaylistID string

	// Modes are the UI toggles
	Modes Modes

	// SearchFilter restricts the play-base by free text
	SearchFilter string
}

// NewPlayerState returns the empty state of a fresh session.
func NewPlayerState() PlayerState {
	return PlayerState{
		Queue:            []Track{},
		Volume:           DefaultVolume,
		Favorites:        []string{},
		StreamQuality:    QualityHigh,
		Equalizer:        DefaultEqualizer(),
		Playlists:        []Playlist{},
		ActivePlaylistID: PlaylistAll,
		Modes:            DefaultModes(),
	}
}

// Clone returns a deep copy of the state.
func (s PlayerState) Clone() PlayerState {
	s.Queue = slices.Clone(s.Queue)
	s.Favorites = slices.Clone(s.Favorites)
	playlists := make([]Playlist, len(s.Playlists))
	for i, p := range s.Playlists {
		playlists[i] = p.Clone()
	}
	s.Playlists = playlists
	return s
}

// Track looks up a queued track by id.
func (s PlayerState) Track(id string) (Track, bool) {
	if id == "" {
		return Track{}, false
	}
	for _, t := range s.Queue {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// CurrentTrack returns the selected track, if any.
func (s PlayerState) CurrentTrack() (Track, bool) {
	return s.Track(s.CurrentTrackID)
}

// IsFavorite reports whether a track is a favorite.
func (s PlayerState) IsFavorite(id string) bool {
	return slices.Contains(s.Favorites, id)
}

// Playlist looks up a stored playlist by id.
func (s PlayerState) Playlist(id string) (Playlist, bool) {
	for _, p := range s.Playlists {
		if p.ID == id {
			return p, true
		}
	}
	return Playlist{}, false
}

// ActivePlaylist returns the active stored playlist. It returns false when a
// reserved selector is active.
func (s PlayerState) ActivePlaylist() (Playlist, bool) {
	if IsReservedPlaylist(s.ActivePlaylistID) {
		return Playlist{}, false
	}
	return s.Playlist(s.ActivePlaylistID)
}

// PlayBase resolves the tracks that are playable right now.
func (s PlayerState) PlayBase() []Track {
	return ResolvePlayBase(s.Queue, s.ActivePlaylistID, s.Favorites, s.Playlists, s.SearchFilter)
}

// HasTrack reports whether the queue holds a track with the given id.
func (s PlayerState) HasTrack(id string) bool {
	_, ok := s.Track(id)
	return ok
}

// NormalizePlaylistName trims a playlist name. Blank names normalize to "".
func NormalizePlaylistName(name string) string {
	return strings.TrimSpace(name)
}
