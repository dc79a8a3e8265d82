package service

import (
	"context"
	"sync"

	"github.com/nuveplayer/nuve/internal/domain"
)

type fakeCatalog struct {
	tracks []domain.Track
	err    error
}

func (f *fakeCatalog) FetchCatalog(ctx context.Context) ([]domain.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Track(nil), f.tracks...), nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profile  *domain.Profile
	fetchErr error
	writeErr error
	upserts  []domain.Profile
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.profile == nil || f.profile.UserID != userID {
		return nil, nil
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeProfiles) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.upserts = append(f.upserts, profile)
	f.profile = &profile
	return nil
}

func (f *fakeProfiles) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeProfiles) writes() []domain.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Profile(nil), f.upserts...)
}

func (f *fakeProfiles) last() (domain.Profile, bool) {
	w := f.writes()
	if len(w) == 0 {
		return domain.Profile{}, false
	}
	return w[len(w)-1], true
}

type fakeSearch struct {
	mu         sync.Mutex
	results    map[string][]domain.Track
	categories map[domain.MusicCategory][]domain.Track
	err        error
	queries    []string
}

func (f *fakeSearch) SearchByQuery(ctx context.Context, query string) ([]domain.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSearch) SearchByCategory(ctx context.Context, category domain.MusicCategory, limit int) ([]domain.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, string(category))
	if f.err != nil {
		return nil, f.err
	}
	tracks := f.categories[category]
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func (f *fakeSearch) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
