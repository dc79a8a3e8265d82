// Package catalog provides the media catalog sources: the profile API,
// the embedded demo catalog and local music folders.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

//go:embed demo.json
var demoCatalog []byte

// Demo returns the embedded demo catalog.
func Demo() []domain.Track {
	var tracks []domain.Track
	if err := json.Unmarshal(demoCatalog, &tracks); err != nil {
		panic(fmt.Sprintf("catalog: embedded demo catalog is invalid: %v", err))
	}
	return tracks
}

// Static serves a fixed list of tracks.
type Static struct {
	tracks []domain.Track
}

// NewStatic creates a provider serving tracks.
func NewStatic(tracks []domain.Track) *Static {
	return &Static{tracks: slices.Clone(tracks)}
}

// NewDemo creates a provider serving the embedded demo catalog.
func NewDemo() *Static {
	return &Static{tracks: Demo()}
}

// FetchCatalog returns a copy of the tracks.
func (s *Static) FetchCatalog(ctx context.Context) ([]domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.tracks), nil
}

var _ ports.CatalogProvider = (*Static)(nil)
