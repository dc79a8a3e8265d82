package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

const flushTimeout = 3 * time.Second

// PreferenceService hydrates the session from the catalog and the user's
// profile, then keeps the profile in step with the state.
//
// Profile writes are best-effort: failures are logged and swallowed.
// Writes run on one goroutine; a burst of state changes collapses into a
// write of the latest snapshot.
type PreferenceService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	catalog  ports.CatalogProvider
	profiles ports.ProfileRepository
	store    *StateStore
	bus      ports.EventBus
	userID   string

	mu          sync.Mutex
	started     bool
	hydrated    bool
	subID       domain.SubscriptionID
	pending     *domain.Preferences
	lastWritten []byte

	wake         chan struct{}
	stop         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewPreferenceService creates a preference service for userID.
func NewPreferenceService(
	logger *slog.Logger,
	catalog ports.CatalogProvider,
	profiles ports.ProfileRepository,
	store *StateStore,
	bus ports.EventBus,
	userID string,
) *PreferenceService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &PreferenceService{
		logger:   logger.With(slog.String("service", "preferences"), slog.String("user_id", userID)),
		catalog:  catalog,
		profiles: profiles,
		store:    store,
		bus:      bus,
		userID:   userID,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.writeLoop()

	s.logger.Debug("preference service initialized")
	return s
}

// Hydrate loads the catalog and the profile concurrently and merges them
// into the state. It runs once; later calls do nothing.
//
// A missing or unreadable profile leaves the defaults in place and selects
// the first catalog track. A stored current track that is not in the
// catalog is replaced by the first catalog track.
func (s *PreferenceService) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	var (
		wg         sync.WaitGroup
		tracks     []domain.Track
		catalogErr error
		profile    *domain.Profile
		profileErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tracks, catalogErr = s.catalog.FetchCatalog(ctx)
	}()
	go func() {
		defer wg.Done()
		profile, profileErr = s.profiles.FetchProfile(ctx, s.userID)
	}()
	wg.Wait()

	if catalogErr != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return domain.NewServiceError("PreferenceService", "Hydrate", "failed to load catalog", catalogErr)
	}
	if profileErr != nil {
		s.logger.Warn("failed to load profile, using defaults", slog.Any("error", profileErr))
		profile = nil
	}

	s.store.SetQueue(tracks)

	if profile != nil {
		prefs := profile.Preferences
		prefs.CurrentTrackID = resolveCurrentTrack(prefs.CurrentTrackID, tracks)
		s.store.Hydrate(prefs)
	} else if len(tracks) > 0 {
		s.store.SetCurrentTrack(tracks[0].ID)
	}

	s.mu.Lock()
	s.hydrated = true
	s.subID = s.bus.Subscribe(domain.EventStateChanged, func(event domain.Event) {
		if e, ok := event.(domain.StateChangedEvent); ok {
			s.schedule(domain.PreferencesOf(e.State))
		}
	})
	s.mu.Unlock()

	// First write creates the profile when none exists.
	s.schedule(s.store.Snapshot())

	s.logger.Info("session hydrated",
		slog.Int("tracks", len(tracks)),
		slog.Bool("profile_found", profile != nil))
	s.bus.Publish(domain.NewHydratedEvent(len(tracks), profile != nil))
	return nil
}

// resolveCurrentTrack keeps a stored id that exists in the catalog and
// otherwise falls back to the first catalog track, or null.
func resolveCurrentTrack(stored domain.NullableID, tracks []domain.Track) domain.NullableID {
	if stored.Value != "" && domain.IndexOf(tracks, stored.Value) >= 0 {
		return stored
	}
	if len(tracks) > 0 {
		return domain.SomeID(tracks[0].ID)
	}
	return domain.NullID()
}

// IsHydrated reports whether hydration completed.
func (s *PreferenceService) IsHydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// schedule replaces the pending snapshot and wakes the writer.
func (s *PreferenceService) schedule(prefs domain.Preferences) {
	s.mu.Lock()
	s.pending = &prefs
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *PreferenceService) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			s.flush(ctx)
			cancel()
			return
		case <-s.wake:
			s.flush(s.ctx)
		}
	}
}

// flush writes the pending snapshot if it differs from the last write.
func (s *PreferenceService) flush(ctx context.Context) {
	s.mu.Lock()
	prefs := s.pending
	s.pending = nil
	s.mu.Unlock()
	if prefs == nil {
		return
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		s.logger.Error("failed to encode preferences", slog.Any("error", err))
		return
	}
	if bytes.Equal(data, s.lastWritten) {
		return
	}

	profile := domain.Profile{UserID: s.userID, Preferences: *prefs}
	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		s.logger.Warn("failed to save profile", slog.Any("error", err))
		return
	}
	s.lastWritten = data
	s.logger.Debug("profile saved")
	s.bus.Publish(domain.NewProfileSavedEvent(s.userID))
}

// Shutdown stops observing the state, writes the last pending snapshot and
// stops the writer.
func (s *PreferenceService) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.bus.Unsubscribe(s.subID)
		s.mu.Unlock()

		close(s.stop)
		s.wg.Wait()
		s.cancel()
		s.logger.Debug("preference service stopped")
	})
}
