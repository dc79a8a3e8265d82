package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// HTTP fetches the catalog from the profile API's /mediaCatalog route.
type HTTP struct {
	logger  *slog.Logger
	baseURL string
	client  *http.Client
}

// NewHTTP creates a catalog client for the API at baseURL.
// A nil client means http.DefaultClient.
func NewHTTP(logger *slog.Logger, baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		logger:  logger.With(slog.String("adapter", "catalog_http")),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchCatalog downloads the catalog. Tracks that break the source
// invariants are dropped.
func (h *HTTP) FetchCatalog(ctx context.Context) ([]domain.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/mediaCatalog", nil)
	if err != nil {
		return nil, domain.NewRepositoryError("fetch", "catalog", "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, domain.NewRepositoryError("fetch", "catalog", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewRepositoryError("fetch", "catalog",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var tracks []domain.Track
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, domain.NewRepositoryError("fetch", "catalog", "invalid catalog payload", err)
	}

	valid := make([]domain.Track, 0, len(tracks))
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			h.logger.Warn("dropping invalid catalog track", slog.String("track_id", t.ID), slog.Any("error", err))
			continue
		}
		valid = append(valid, t)
	}
	return valid, nil
}

var _ ports.CatalogProvider = (*HTTP)(nil)
