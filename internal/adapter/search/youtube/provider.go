// Package youtube implements the search provider on the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

const (
	// queryResults is the page size of a free-text search.
	queryResults = 12
	// categoryPageSize is the page size of a category search.
	categoryPageSize = 25
	// categoryPagesPerQuery bounds the pages read per category query.
	categoryPagesPerQuery = 2
	// musicCategoryID is the YouTube video category "Music".
	musicCategoryID = "10"

	defaultRPS   = 5
	defaultBurst = 5
)

// Provider searches YouTube videos in the music category.
// The API client is created on first use.
type Provider struct {
	logger   *slog.Logger
	apiKey   string
	endpoint string
	limiter  *rate.Limiter

	once    sync.Once
	service *yt.Service
	initErr error
}

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithRateLimit sets the request rate; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Provider) {
		if rps <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// New creates a provider. An empty apiKey makes every search fail with
// domain.ErrMissingCredential.
func New(logger *slog.Logger, apiKey string, opts ...Option) *Provider {
	p := &Provider{
		logger:  logger.With(slog.String("adapter", "youtube")),
		apiKey:  strings.TrimSpace(apiKey),
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) client(ctx context.Context) (*yt.Service, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("youtube: %w", domain.ErrMissingCredential)
	}

	p.once.Do(func() {
		opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
		if p.endpoint != "" {
			opts = append(opts, option.WithEndpoint(p.endpoint))
		}
		p.service, p.initErr = yt.NewService(context.WithoutCancel(ctx), opts...)
	})
	if p.initErr != nil {
		return nil, fmt.Errorf("create youtube service: %w", p.initErr)
	}
	return p.service, nil
}

// SearchByQuery returns up to 12 music videos matching query.
func (p *Provider) SearchByQuery(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Track{}, nil
	}

	resp, err := p.searchPage(ctx, query, queryResults, "")
	if err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if track, ok := mapItem(item); ok {
			tracks = append(tracks, track)
		}
	}
	return tracks, nil
}

// SearchByCategory collects up to limit unique videos over the category
// queries, reading at most two pages of 25 per query.
func (p *Provider) SearchByCategory(ctx context.Context, category domain.MusicCategory, limit int) ([]domain.Track, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", category, domain.ErrUnknownCategory.Error())
	}
	if limit <= 0 {
		return []domain.Track{}, nil
	}

	tracks := make([]domain.Track, 0, limit)
	seen := make(map[string]struct{})

	for _, query := range category.Queries() {
		pageToken := ""
		for page := 0; page < categoryPagesPerQuery && len(tracks) < limit; page++ {
			resp, err := p.searchPage(ctx, query, categoryPageSize, pageToken)
			if err != nil {
				return nil, err
			}

			for _, item := range resp.Items {
				track, ok := mapItem(item)
				if !ok {
					continue
				}
				if _, dup := seen[track.YouTubeVideoID]; dup {
					continue
				}
				seen[track.YouTubeVideoID] = struct{}{}
				tracks = append(tracks, track)
				if len(tracks) >= limit {
					return tracks, nil
				}
			}

			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}

	p.logger.Debug("category search done",
		slog.String("category", string(category)),
		slog.Int("tracks", len(tracks)))
	return tracks, nil
}

func (p *Provider) searchPage(ctx context.Context, query string, size int64, pageToken string) (*yt.SearchListResponse, error) {
	svc, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(size).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}
	return resp, nil
}

// mapItem converts a search result into a YouTube track. Results that are
// not videos are skipped.
func mapItem(item *yt.SearchResult) (domain.Track, bool) {
	if item == nil || item.Id == nil || item.Id.VideoId == "" {
		return domain.Track{}, false
	}

	videoID := item.Id.VideoId
	track := domain.Track{
		ID:             "yt-" + videoID,
		MediaType:      domain.MediaVideo,
		Kind:           domain.SourceYouTube,
		YouTubeVideoID: videoID,
		ExternalURL:    "https://www.youtube.com/watch?v=" + videoID,
		Sources:        map[domain.StreamQuality]string{},
	}
	if s := item.Snippet; s != nil {
		track.Title = html.UnescapeString(s.Title)
		track.Artist = html.UnescapeString(s.ChannelTitle)
		track.CoverURL = thumbnailOf(s.Thumbnails)
		track.VideoPoster = track.CoverURL
	}
	return track, true
}

func thumbnailOf(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

var _ ports.SearchProvider = (*Provider)(nil)
