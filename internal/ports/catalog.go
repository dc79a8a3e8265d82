package ports

import (
	"context"

	"github.com/nuveplayer/nuve/internal/domain"
)

// CatalogProvider supplies the initial list of playable tracks.
type CatalogProvider interface {
	// FetchCatalog returns the catalog in display order.
	FetchCatalog(ctx context.Context) ([]domain.Track, error)
}

// SearchProvider queries an external video-search service.
//
// Implementations return an error wrapping domain.ErrMissingCredential when
// no API key is configured, so callers can tell it apart from other failures.
type SearchProvider interface {
	// SearchByQuery returns ad-hoc results for free text.
	// A blank query returns no results and no error.
	SearchByQuery(ctx context.Context, query string) ([]domain.Track, error)

	// SearchByCategory walks the category queries page by page, deduplicating
	// by video id, and stops once limit unique tracks were collected or every
	// page of every query was read.
	SearchByCategory(ctx context.Context, category domain.MusicCategory, limit int) ([]domain.Track, error)
}

// LibraryScanner turns local media files into tracks.
type LibraryScanner interface {
	// SupportedFormats returns the lower-case file extensions the scanner
	// can read, including the leading dot.
	SupportedFormats() []string

	// ReadTrack reads the tags of one file. It returns an error wrapping
	// domain.ErrUnsupportedFormat for files it cannot read.
	ReadTrack(path string) (domain.Track, error)
}
