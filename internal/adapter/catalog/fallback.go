package catalog

import (
	"context"
	"log/slog"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// Fallback serves the primary catalog and switches to the secondary one on
// any primary failure. The secondary is usually the demo catalog.
type Fallback struct {
	logger    *slog.Logger
	primary   ports.CatalogProvider
	secondary ports.CatalogProvider
}

// NewFallback creates a fallback decorator.
func NewFallback(logger *slog.Logger, primary, secondary ports.CatalogProvider) *Fallback {
	return &Fallback{
		logger:    logger.With(slog.String("adapter", "catalog_fallback")),
		primary:   primary,
		secondary: secondary,
	}
}

// FetchCatalog returns the primary catalog, or the secondary on failure.
func (f *Fallback) FetchCatalog(ctx context.Context) ([]domain.Track, error) {
	tracks, err := f.primary.FetchCatalog(ctx)
	if err == nil {
		return tracks, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.logger.Warn("catalog unavailable, using fallback", slog.Any("error", err))
	return f.secondary.FetchCatalog(ctx)
}

var _ ports.CatalogProvider = (*Fallback)(nil)
