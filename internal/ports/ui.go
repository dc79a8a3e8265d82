// Package ports define the view interface the presenter renders into.
// This interface allows the presenter to update the UI without depending on Fyne directly.
package ports

import (
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
)

// PlayerView is the interface for the player shell.
// This abstracts the Fyne UI implementation and allows for testing without a real UI.
//
// The presenter receives events from the event bus and calls these methods
// to update the shell. Methods may be called from any goroutine; the
// implementation is responsible for moving work onto its UI thread.
type PlayerView interface {
	// Screens

	// ShowWelcome displays the welcome screen.
	ShowWelcome()

	// ShowPlayer replaces the welcome screen with the player shell.
	ShowPlayer()

	// Now playing

	// SetNowPlaying shows the selected track. track is nil when nothing is selected.
	SetNowPlaying(track *domain.Track, favorite bool)

	// SetPlayState updates the play/pause button state.
	SetPlayState(playing bool)

	// SetProgress updates the progress slider and the time labels.
	SetProgress(position, duration time.Duration)

	// SetVolume updates the volume slider (0.0 to 1.0).
	SetVolume(volume float64)

	// Library

	// SetQueue shows the playable tracks, highlights currentID and marks favorites.
	SetQueue(tracks []domain.Track, currentID string, favorites []string)

	// SetPlaylists shows the user playlists and the active selector.
	SetPlaylists(playlists []domain.Playlist, activeID string)

	// Settings

	SetModes(modes domain.Modes)
	SetEqualizer(eq domain.Equalizer)
	SetStreamQuality(quality domain.StreamQuality)

	// Search

	// SetSearchResults shows the latest search or category results.
	SetSearchResults(query string, results []domain.Track)

	// SetSearching toggles the busy indicator of the search box.
	SetSearching(busy bool)

	// Notifications

	// ShowError displays a dismissable error banner.
	ShowError(message string)

	// ClearError hides the error banner.
	ClearError()

	// ShowNotification displays a temporary notification to the user.
	ShowNotification(title, message string)
}
