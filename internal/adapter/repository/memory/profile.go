// Package memory provides a profile repository on the local preferences
// store of the desktop app.
package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

const keyPrefix = "profile."

// ProfileRepository implements ports.ProfileRepository using Fyne preferences.
// Profiles are stored as JSON with keys like "profile.<userId>".
//
// Thread-safe: All operations protected by sync.RWMutex.
type ProfileRepository struct {
	prefs  fyne.Preferences
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewProfileRepository creates a new profile repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewProfileRepository(prefs fyne.Preferences, logger *slog.Logger) *ProfileRepository {
	return &ProfileRepository{
		prefs:  prefs,
		logger: logger.With(slog.String("adapter", "profile_local")),
	}
}

// FetchProfile loads the stored profile of a user.
func (r *ProfileRepository) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyPrefix + userID)
	if data == "" {
		return nil, nil
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, domain.NewRepositoryError("fetch", "profile", "failed to unmarshal profile", err)
	}
	return &profile, nil
}

// UpsertProfile merges the present fields of profile into the stored one.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile domain.Profile) error {
	if profile.UserID == "" {
		return domain.NewValidationError("userId", profile.UserID, "user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	patch, err := json.Marshal(profile)
	if err != nil {
		return domain.NewRepositoryError("upsert", "profile", "failed to marshal profile", err)
	}

	key := keyPrefix + profile.UserID
	merged, err := domain.MergePatch([]byte(r.prefs.String(key)), patch)
	if err != nil {
		return domain.NewRepositoryError("upsert", "profile", "failed to merge profile", err)
	}

	r.prefs.SetString(key, string(merged))
	r.logger.Debug("profile stored", slog.String("user_id", profile.UserID))
	return nil
}

// DeleteProfile removes the stored profile of a user.
func (r *ProfileRepository) DeleteProfile(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyPrefix + userID)
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)
