package domain

import (
	"bytes"
	"encoding/json"
	"maps"
)

// NullableID is an optional, nullable identifier.
// The zero value means "absent"; Null() means "present and null".
type NullableID struct {
	Value string
	Set   bool
}

// SomeID returns a present identifier. An empty id is encoded as null.
func SomeID(id string) NullableID {
	return NullableID{Value: id, Set: true}
}

// NullID returns a present null identifier.
func NullID() NullableID {
	return NullableID{Set: true}
}

// IsNull reports whether the identifier is present and null.
func (n NullableID) IsNull() bool {
	return n.Set && n.Value == ""
}

// MarshalJSON encodes the identifier as a string or null.
func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON records presence and decodes a string or null.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = ""
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// Preferences is the serializable projection of the player state.
// Every field is optional: nil slices and pointers, empty strings and an
// unset NullableID mean "absent" and are left alone by a partial merge.
type Preferences struct {
	Favorites        []string      `json:"favorites,omitzero"`
	StreamQuality    StreamQuality `json:"streamQuality,omitempty"`
	Equalizer        *Equalizer    `json:"equalizer,omitempty"`
	Volume           *float64      `json:"volume,omitempty"`
	CurrentTrackID   NullableID    `json:"currentTrackId,omitzero"`
	Playlists        []Playlist    `json:"playlists,omitzero"`
	ActivePlaylistID string        `json:"activePlaylistId,omitempty"`
	AutoplayMode     *bool         `json:"autoplayMode,omitempty"`
	LoopMode         *bool         `json:"loopMode,omitempty"`
	ShuffleMode      *bool         `json:"shuffleMode,omitempty"`
	TheaterMode      *bool         `json:"theaterMode,omitempty"`
	VisualizerMode   *bool         `json:"visualizerMode,omitempty"`
}

// IsEmpty reports whether no field is present.
func (p Preferences) IsEmpty() bool {
	return p.Favorites == nil &&
		p.StreamQuality == "" &&
		p.Equalizer == nil &&
		p.Volume == nil &&
		!p.CurrentTrackID.Set &&
		p.Playlists == nil &&
		p.ActivePlaylistID == "" &&
		p.AutoplayMode == nil &&
		p.LoopMode == nil &&
		p.ShuffleMode == nil &&
		p.TheaterMode == nil &&
		p.VisualizerMode == nil
}

// MergeInto applies the present fields to state.
func (p Preferences) MergeInto(state *PlayerState) {
	if p.Favorites != nil {
		state.Favorites = append([]string{}, p.Favorites...)
	}
	if p.StreamQuality != "" {
		state.StreamQuality = p.StreamQuality
	}
	if p.Equalizer != nil {
		state.Equalizer = *p.Equalizer
	}
	if p.Volume != nil {
		state.Volume = *p.Volume
	}
	if p.CurrentTrackID.Set {
		state.CurrentTrackID = p.CurrentTrackID.Value
	}
	if p.Playlists != nil {
		playlists := make([]Playlist, len(p.Playlists))
		for i, pl := range p.Playlists {
			playlists[i] = pl.Clone()
		}
		state.Playlists = playlists
	}
	if p.ActivePlaylistID != "" {
		state.ActivePlaylistID = p.ActivePlaylistID
	}
	if p.AutoplayMode != nil {
		state.Modes.Autoplay = *p.AutoplayMode
	}
	if p.LoopMode != nil {
		state.Modes.Loop = *p.LoopMode
	}
	if p.ShuffleMode != nil {
		state.Modes.Shuffle = *p.ShuffleMode
	}
	if p.TheaterMode != nil {
		state.Modes.Theater = *p.TheaterMode
	}
	if p.VisualizerMode != nil {
		state.Modes.Visualizer = *p.VisualizerMode
	}
}

// PreferencesOf projects the full state into a snapshot with every field present.
func PreferencesOf(state PlayerState) Preferences {
	state = state.Clone()
	eq := state.Equalizer
	volume := state.Volume
	modes := state.Modes
	if state.Favorites == nil {
		state.Favorites = []string{}
	}
	if state.Playlists == nil {
		state.Playlists = []Playlist{}
	}

	return Preferences{
		Favorites:        state.Favorites,
		StreamQuality:    state.StreamQuality,
		Equalizer:        &eq,
		Volume:           &volume,
		CurrentTrackID:   SomeID(state.CurrentTrackID),
		Playlists:        state.Playlists,
		ActivePlaylistID: state.ActivePlaylistID,
		AutoplayMode:     &modes.Autoplay,
		LoopMode:         &modes.Loop,
		ShuffleMode:      &modes.Shuffle,
		TheaterMode:      &modes.Theater,
		VisualizerMode:   &modes.Visualizer,
	}
}

// Profile is the persisted preferences snapshot of one user.
type Profile struct {
	// ID is assigned by the profile service; empty until first stored
	ID string `json:"id,omitempty"`

	// UserID identifies the owner
	UserID string `json:"userId"`

	Preferences
}

// NewProfile builds a profile for userID from the current state.
func NewProfile(userID string, state PlayerState) Profile {
	return Profile{
		UserID:      userID,
		Preferences: PreferencesOf(state),
	}
}

// MergePatch applies the top-level members of the JSON object patch to the
// JSON object doc. Present members replace stored ones, absent members are
// kept. An empty doc is treated as an empty object.
func MergePatch(doc, patch []byte) ([]byte, error) {
	merged := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(doc)) > 0 {
		if err := json.Unmarshal(doc, &merged); err != nil {
			return nil, err
		}
		if merged == nil {
			merged = map[string]json.RawMessage{}
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, err
	}
	maps.Copy(merged, fields)
	return json.Marshal(merged)
}
