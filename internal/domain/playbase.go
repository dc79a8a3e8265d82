package domain

import (
	"strings"

	"github.com/samber/lo"
)

// ResolvePlayBase returns the tracks eligible for playback, in queue order.
//
// "favorites" keeps favorite tracks, a stored playlist id keeps that
// playlist's tracks, anything else keeps the whole queue. A non-blank filter
// further keeps tracks whose "title artist" contains it, case-insensitively.
func ResolvePlayBase(queue []Track, activePlaylistID string, favorites []string, playlists []Playlist, filter string) []Track {
	base := queue

	switch {
	case activePlaylistID == PlaylistFavorites:
		favs := lo.Keyify(favorites)
		base = lo.Filter(queue, func(t Track, _ int) bool {
			_, ok := favs[t.ID]
			return ok
		})
	case activePlaylistID != PlaylistAll:
		if playlist, ok := lo.Find(playlists, func(p Playlist) bool { return p.ID == activePlaylistID }); ok {
			ids := lo.Keyify(playlist.TrackIDs)
			base = lo.Filter(queue, func(t Track, _ int) bool {
				_, ok := ids[t.ID]
				return ok
			})
		}
	}

	query := strings.ToLower(strings.TrimSpace(filter))
	if query == "" {
		return append([]Track{}, base...)
	}

	return lo.Filter(base, func(t Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.SearchText()), query)
	})
}

// IndexOf returns the position of trackID in tracks, or -1.
func IndexOf(tracks []Track, trackID string) int {
	_, idx, ok := lo.FindIndexOf(tracks, func(t Track) bool { return t.ID == trackID })
	if !ok {
		return -1
	}
	return idx
}

// StepIndex moves delta positions from current over n items, wrapping in
// both directions. A current index outside the list counts as 0.
// It returns -1 when n is 0.
func StepIndex(n, current, delta int) int {
	if n <= 0 {
		return -1
	}
	if current < 0 || current >= n {
		current = 0
	}
	return ((current+delta)%n + n) % n
}

// ShuffleIndex picks a uniformly random index in [0, n) other than current
// when n > 1. intn must return a value in [0, n) like rand.IntN.
// It returns -1 when n is 0.
func ShuffleIndex(n, current int, intn func(int) int) int {
	if n <= 0 {
		return -1
	}
	if current < 0 || current >= n {
		current = 0
	}
	if n == 1 {
		return current
	}

	// Draw from the n-1 other slots.
	idx := intn(n - 1)
	if idx >= current {
		idx++
	}
	return idx
}
