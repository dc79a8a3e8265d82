// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"context"
	"encoding/json"

	"github.com/nuveplayer/nuve/internal/domain"
)

// ProfileRepository handles the persistence of user preference profiles.
// Implementations can use a remote profile service or local storage.
//
// Thread-safety: Implementations must be thread-safe.
type ProfileRepository interface {
	// FetchProfile retrieves the profile of a user.
	// If no profile exists, returns (nil, nil).
	//
	// Returns an error if the profile cannot be read.
	FetchProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// UpsertProfile stores the profile, creating it on first write.
	// Fields absent from the profile are left untouched on the stored copy.
	//
	// Returns an error if the write fails. Callers treat writes as best-effort.
	UpsertProfile(ctx context.Context, profile domain.Profile) error
}

// ProfileStore is the server-side storage behind the profile service.
//
// Thread-safety: Implementations must be thread-safe.
type ProfileStore interface {
	// ListProfiles returns the profiles of a user, or every profile when userID is empty.
	ListProfiles(ctx context.Context, userID string) ([]domain.Profile, error)

	// GetProfile returns a profile by id.
	// If it doesn't exist, returns domain.ErrProfileNotFound.
	GetProfile(ctx context.Context, id string) (domain.Profile, error)

	// CreateProfile stores a new profile and returns it with its assigned id.
	CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)

	// PatchProfile merges the JSON object patch into a stored profile.
	// Present fields replace stored ones; the id never changes.
	PatchProfile(ctx context.Context, id string, patch json.RawMessage) (domain.Profile, error)

	// DeleteProfile removes a profile. Deleting a missing profile returns domain.ErrProfileNotFound.
	DeleteProfile(ctx context.Context, id string) error
}

// CatalogStore is the server-side storage of the media catalog.
type CatalogStore interface {
	// ListTracks returns the catalog in display order.
	ListTracks(ctx context.Context) ([]domain.Track, error)

	// PutTracks inserts or replaces tracks, keeping the order of first insertion.
	PutTracks(ctx context.Context, tracks []domain.Track) error
}
