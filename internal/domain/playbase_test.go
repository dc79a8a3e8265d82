package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(id, title, artist string) Track {
	return Track{ID: id, Title: title, Artist: artist, MediaType: MediaAudio,
		Sources: map[StreamQuality]string{QualityHigh: "https://cdn/" + id}}
}

func ids(tracks []Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func TestResolvePlayBase_Favorites(t *testing.T) {
	queue := []Track{track("a", "A", ""), track("b", "B", ""), track("c", "C", ""), track("d", "D", "")}

	tests := []struct {
		name      string
		favorites []string
		want      []string
	}{
		{"none", nil, []string{}},
		{"queue order kept", []string{"d", "a"}, []string{"a", "d"}},
		{"unknown ids ignored", []string{"zz", "b"}, []string{"b"}},
		{"all", []string{"c", "b", "a", "d"}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := ResolvePlayBase(queue, PlaylistFavorites, tt.favorites, nil, "")
			assert.Equal(t, tt.want, ids(base))
		})
	}
}

func TestResolvePlayBase_RandomFavoritesAreSubsequence(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		var queue []Track
		var favorites []string
		for i := 0; i < 20; i++ {
			id := string(rune('a' + i))
			queue = append(queue, track(id, id, ""))
			if r.IntN(2) == 0 {
				favorites = append(favorites, id)
			}
		}
		r.Shuffle(len(favorites), func(i, j int) { favorites[i], favorites[j] = favorites[j], favorites[i] })

		base := ResolvePlayBase(queue, PlaylistFavorites, favorites, nil, "")

		require.Len(t, base, len(favorites))
		last := -1
		for _, tr := range base {
			idx := IndexOf(queue, tr.ID)
			assert.Greater(t, idx, last)
			assert.Contains(t, favorites, tr.ID)
			last = idx
		}
	}
}

func TestResolvePlayBase_Playlist(t *testing.T) {
	queue := []Track{track("a", "A", ""), track("b", "B", ""), track("c", "C", "")}
	playlists := []Playlist{{ID: "pl-1", Name: "mix", TrackIDs: []string{"c", "a"}}}

	assert.Equal(t, []string{"a", "c"}, ids(ResolvePlayBase(queue, "pl-1", nil, playlists, "")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(ResolvePlayBase(queue, "pl-missing", nil, playlists, "")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(ResolvePlayBase(queue, PlaylistAll, nil, playlists, "")))
}

func TestResolvePlayBase_Filter(t *testing.T) {
	queue := []Track{
		track("a", "Blue Monday", "New Order"),
		track("b", "Bizarre Love Triangle", "New Order"),
		track("c", "Blue Train", "John Coltrane"),
	}

	assert.Equal(t, []string{"a", "c"}, ids(ResolvePlayBase(queue, PlaylistAll, nil, nil, " blue ")))
	assert.Equal(t, []string{"a", "b"}, ids(ResolvePlayBase(queue, PlaylistAll, nil, nil, "NEW ORDER")))
	assert.Equal(t, []string{"a"}, ids(ResolvePlayBase(queue, PlaylistAll, nil, nil, "monday new")))
	assert.Equal(t, []string{"c"}, ids(ResolvePlayBase(queue, PlaylistFavorites, []string{"c", "b"}, nil, "blue")))
}

func TestResolvePlayBase_ReturnsCopy(t *testing.T) {
	queue := []Track{track("a", "A", "")}
	base := ResolvePlayBase(queue, PlaylistAll, nil, nil, "")
	base[0].Title = "changed"
	assert.Equal(t, "A", queue[0].Title)
}

func TestStepIndex(t *testing.T) {
	tests := []struct {
		name              string
		n, current, delta int
		want              int
	}{
		{"empty", 0, 0, 1, -1},
		{"next", 3, 0, 1, 1},
		{"next wraps", 3, 2, 1, 0},
		{"previous wraps", 3, 0, -1, 2},
		{"unknown current counts as first", 3, -1, 1, 1},
		{"single", 1, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StepIndex(tt.n, tt.current, tt.delta))
		})
	}
}

func TestStepIndex_NextThenPrevious(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for i := 0; i < n; i++ {
			assert.Equal(t, i, StepIndex(n, StepIndex(n, i, 1), -1))
		}
	}
}

func TestShuffleIndex_NeverPicksCurrent(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for n := 2; n <= 8; n++ {
		hits := make([]int, n)
		for i := 0; i < 400; i++ {
			current := i % n
			idx := ShuffleIndex(n, current, r.IntN)
			require.NotEqual(t, current, idx)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, n)
			hits[idx]++
		}
		for idx, h := range hits {
			assert.Positive(t, h, "index %d of %d never picked", idx, n)
		}
	}
}

func TestShuffleIndex_Edges(t *testing.T) {
	never := func(int) int { panic("must not draw") }
	assert.Equal(t, -1, ShuffleIndex(0, 0, never))
	assert.Equal(t, 0, ShuffleIndex(1, 0, never))
	assert.Equal(t, 1, ShuffleIndex(2, -1, func(int) int { return 0 }))
}
