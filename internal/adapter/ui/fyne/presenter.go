// Package fyne provides Fyne UI adapter implementations.
// This package implements the player shell using the Fyne toolkit.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
	"github.com/nuveplayer/nuve/internal/service"
)

// Presenter implements the Presenter pattern (MVP architecture).
// It coordinates between services and the shell, handling all event-driven updates.
//
// Responsibilities:
// - Subscribe to events from the event bus
// - Map domain events to view updates
// - Translate UI commands to store, synchronizer and library calls
//
// Thread-safety: All operations are thread-safe via sync.Mutex.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services (injected)
	store   *service.StateStore
	player  *service.Synchronizer
	library *service.LibraryService
	bus     ports.EventBus

	// UI view
	view ports.PlayerView

	// Presentation state
	subIDs       []domain.SubscriptionID
	lastRevision uint64
	errorSource  string
	entered      bool

	// Background commands (search, categories, scans)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Concurrency control
	mu           sync.Mutex
	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter and renders the current state.
func NewPresenter(
	logger *slog.Logger,
	store *service.StateStore,
	player *service.Synchronizer,
	library *service.LibraryService,
	bus ports.EventBus,
	view ports.PlayerView,
) *Presenter {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Presenter{
		logger:  logger.With(slog.String("component", "presenter")),
		store:   store,
		player:  player,
		library: library,
		bus:     bus,
		view:    view,
		ctx:     ctx,
		cancel:  cancel,
	}

	p.subscribeToEvents()
	p.render(store.State())
	view.ShowWelcome()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// State
		domain.EventStateChanged: p.onStateChanged,
		domain.EventClockUpdated: p.onClockUpdated,

		// Errors
		domain.EventPlayerError:        p.onPlayerError,
		domain.EventPlayerErrorCleared: p.onPlayerErrorCleared,

		// Library
		domain.EventSearchCompleted: p.onSearchCompleted,
		domain.EventCategoryLoaded:  p.onCategoryLoaded,

		// Scan events
		domain.EventScanStarted:   p.onScanStarted,
		domain.EventScanCompleted: p.onScanCompleted,
		domain.EventScanCancelled: p.onScanCancelled,
	}

	ids := make([]domain.SubscriptionID, 0, len(subscriptions))
	for eventType, handler := range subscriptions {
		ids = append(ids, p.bus.Subscribe(eventType, handler))
	}

	p.mu.Lock()
	p.subIDs = ids
	p.mu.Unlock()
}

// render pushes a full state snapshot into the view.
func (p *Presenter) render(state domain.PlayerState) {
	if track, ok := state.CurrentTrack(); ok {
		p.view.SetNowPlaying(&track, state.IsFavorite(track.ID))
	} else {
		p.view.SetNowPlaying(nil, false)
	}
	p.view.SetPlayState(state.IsPlaying)
	p.view.SetVolume(state.Volume)
	p.view.SetQueue(state.PlayBase(), state.CurrentTrackID, state.Favorites)
	p.view.SetPlaylists(state.Playlists, state.ActivePlaylistID)
	p.view.SetModes(state.Modes)
	p.view.SetEqualizer(state.Equalizer)
	p.view.SetStreamQuality(state.StreamQuality)
}

// Event handlers

func (p *Presenter) onStateChanged(event domain.Event) {
	e, ok := event.(domain.StateChangedEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	if e.Revision <= p.lastRevision {
		p.mu.Unlock()
		return
	}
	p.lastRevision = e.Revision
	p.mu.Unlock()

	p.render(e.State)
}

func (p *Presenter) onClockUpdated(event domain.Event) {
	e, ok := event.(domain.ClockUpdatedEvent)
	if !ok {
		return
	}
	p.view.SetProgress(e.Position, e.Duration)
}

func (p *Presenter) onPlayerError(event domain.Event) {
	e, ok := event.(domain.PlayerErrorEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	p.errorSource = e.Source
	p.mu.Unlock()

	p.view.ShowError(e.Message)
}

// onPlayerErrorCleared hides the banner only when it still shows an error
// from the same source.
func (p *Presenter) onPlayerErrorCleared(event domain.Event) {
	e, ok := event.(domain.PlayerErrorClearedEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	if p.errorSource != e.Source {
		p.mu.Unlock()
		return
	}
	p.errorSource = ""
	p.mu.Unlock()

	p.view.ClearError()
}

func (p *Presenter) onSearchCompleted(event domain.Event) {
	e, ok := event.(domain.SearchCompletedEvent)
	if !ok {
		return
	}
	p.view.SetSearchResults(e.Query, e.Results)
}

func (p *Presenter) onCategoryLoaded(event domain.Event) {
	e, ok := event.(domain.CategoryLoadedEvent)
	if !ok {
		return
	}
	p.view.ShowNotification(e.Category.Label(), fmt.Sprintf("Added %d tracks", len(e.Tracks)))
}

func (p *Presenter) onScanStarted(event domain.Event) {
	e, ok := event.(domain.ScanStartedEvent)
	if !ok {
		return
	}
	p.view.ShowNotification("Scan Started", fmt.Sprintf("Scanning: %s", e.Path))
}

func (p *Presenter) onScanCompleted(event domain.Event) {
	e, ok := event.(domain.ScanCompletedEvent)
	if !ok {
		return
	}
	p.view.ShowNotification("Scan Complete", fmt.Sprintf("Found %d tracks", len(e.TracksFound)))
}

func (p *Presenter) onScanCancelled(event domain.Event) {
	p.view.ShowNotification("Scan Cancelled", "Scan was cancelled")
}

// UI Command handlers (called by UI)

// OnEnter leaves the welcome screen.
func (p *Presenter) OnEnter() {
	p.mu.Lock()
	if p.entered {
		p.mu.Unlock()
		return
	}
	p.entered = true
	p.mu.Unlock()

	p.view.ShowPlayer()
}

// OnPlayPauseClicked handles the play button click.
func (p *Presenter) OnPlayPauseClicked() {
	if err := p.player.TogglePlaying(); err != nil {
		p.logger.Debug("play ignored", slog.Any("error", err))
	}
}

// OnNextClicked handles the next button click.
func (p *Presenter) OnNextClicked() {
	p.player.Next()
}

// OnPreviousClicked handles the previous button click.
func (p *Presenter) OnPreviousClicked() {
	p.player.Previous()
}

// OnSeekRequested handles seek requests from the progress slider (seconds).
func (p *Presenter) OnSeekRequested(position float64) {
	p.player.Seek(time.Duration(position * float64(time.Second)))
}

// OnVolumeChanged handles volume slider changes (0.0 to 1.0).
func (p *Presenter) OnVolumeChanged(volume float64) {
	p.player.SetVolume(volume)
}

// OnTrackSelected plays a track from the queue list.
func (p *Presenter) OnTrackSelected(trackID string) {
	p.store.PlayTrack(trackID)
}

// OnFavoriteClicked toggles the favorite flag of the current track.
func (p *Presenter) OnFavoriteClicked() {
	track, ok := p.store.CurrentTrack()
	if !ok {
		return
	}
	p.store.ToggleFavorite(track.ID)
}

// OnToggleFavorite toggles the favorite flag of any queued track.
func (p *Presenter) OnToggleFavorite(trackID string) {
	p.store.ToggleFavorite(trackID)
}

// OnModeChanged sets one of the playback toggles.
func (p *Presenter) OnModeChanged(mode domain.Mode, enabled bool) {
	if err := p.store.SetMode(mode, enabled); err != nil {
		p.logger.Warn("mode change rejected", slog.Any("error", err))
	}
}

// OnEqualizerChanged updates one equalizer band (0 to 100).
func (p *Presenter) OnEqualizerChanged(band domain.EqualizerBand, value float64) {
	if err := p.store.SetEqualizerBand(band, value); err != nil {
		p.logger.Warn("equalizer change rejected", slog.Any("error", err))
	}
}

// OnQualitySelected switches the stream quality.
func (p *Presenter) OnQualitySelected(quality domain.StreamQuality) {
	if err := p.store.SetStreamQuality(quality); err != nil {
		p.logger.Warn("quality change rejected", slog.Any("error", err))
	}
}

// OnPlaylistSelected activates a playlist or a reserved selector.
func (p *Presenter) OnPlaylistSelected(id string) {
	p.store.SetActivePlaylist(id)
}

// OnCreatePlaylist creates and activates a playlist. Blank names are ignored.
func (p *Presenter) OnCreatePlaylist(name string) bool {
	_, ok := p.store.CreatePlaylist(name)
	return ok
}

// OnDeletePlaylist deletes a user playlist.
func (p *Presenter) OnDeletePlaylist(id string) {
	p.store.DeletePlaylist(id)
}

// OnAddCurrentToPlaylist adds the current track to the active playlist.
// It does nothing while a reserved selector is active.
func (p *Presenter) OnAddCurrentToPlaylist() {
	playlistID, trackID, ok := p.currentInPlaylist()
	if !ok {
		return
	}
	p.store.AddTrackToPlaylist(playlistID, trackID)
}

// OnRemoveCurrentFromPlaylist removes the current track from the active playlist.
func (p *Presenter) OnRemoveCurrentFromPlaylist() {
	playlistID, trackID, ok := p.currentInPlaylist()
	if !ok {
		return
	}
	p.store.RemoveTrackFromPlaylist(playlistID, trackID)
}

// OnAddToPlaylist adds a queued track to a user playlist.
func (p *Presenter) OnAddToPlaylist(playlistID, trackID string) {
	p.store.AddTrackToPlaylist(playlistID, trackID)
}

func (p *Presenter) currentInPlaylist() (playlistID, trackID string, ok bool) {
	state := p.store.State()
	playlist, ok := state.ActivePlaylist()
	if !ok {
		return "", "", false
	}
	track, ok := state.CurrentTrack()
	if !ok {
		return "", "", false
	}
	return playlist.ID, track.ID, true
}

// OnFilterChanged narrows the queue by free text.
func (p *Presenter) OnFilterChanged(filter string) {
	p.store.SetSearchFilter(filter)
}

// OnSearchSubmitted runs a YouTube search in the background.
// Results arrive through the event bus.
func (p *Presenter) OnSearchSubmitted(query string) {
	p.background("search", func(ctx context.Context) error {
		_, err := p.library.Search(ctx, query)
		return err
	})
}

// OnCategorySelected loads a curated category in the background.
func (p *Presenter) OnCategorySelected(category domain.MusicCategory) {
	p.background("category", func(ctx context.Context) error {
		_, err := p.library.LoadCategory(ctx, category)
		return err
	})
}

// OnResultSelected queues and plays a search result.
func (p *Presenter) OnResultSelected(track domain.Track) {
	p.library.PlayResult(track)
}

// OnFileOpened queues and plays a local file.
func (p *Presenter) OnFileOpened(path string) error {
	_, err := p.library.OpenFile(path)
	return err
}

// OnFolderOpened scans a local folder in the background.
func (p *Presenter) OnFolderOpened(folderPath string) {
	if p.ctx.Err() != nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.library.ScanFolder(p.ctx, folderPath); err != nil && !errors.Is(err, domain.ErrScanCancelled) {
			p.logger.Error("folder scan failed", slog.String("path", folderPath), slog.Any("error", err))
			p.view.ShowNotification("Scan Failed", err.Error())
		}
	}()
}

// OnDismissError hides the error banner.
func (p *Presenter) OnDismissError() {
	p.mu.Lock()
	p.errorSource = ""
	p.mu.Unlock()

	p.view.ClearError()
}

// background runs a search command off the UI thread with the busy
// indicator shown. Failures are reported through PlayerErrorEvent.
func (p *Presenter) background(op string, fn func(ctx context.Context) error) {
	if p.ctx.Err() != nil {
		return
	}
	p.wg.Add(1)
	p.view.SetSearching(true)
	go func() {
		defer p.wg.Done()
		defer p.view.SetSearching(false)
		if err := fn(p.ctx); err != nil {
			p.logger.Debug(op+" failed", slog.Any("error", err))
		}
	}()
}

// HandleKey maps a keyboard shortcut to a command. Keys pressed while a text
// field has focus are left alone. It reports whether the key was handled.
func (p *Presenter) HandleKey(key fyne.KeyName, typing bool) bool {
	if typing {
		return false
	}

	switch key {
	case fyne.KeySpace:
		p.OnPlayPauseClicked()
	case fyne.KeyRight:
		p.player.SeekForward()
	case fyne.KeyLeft:
		p.player.SeekBackward()
	case fyne.KeyUp:
		p.player.VolumeUp()
	case fyne.KeyDown:
		p.player.VolumeDown()
	case fyne.KeyN:
		p.player.Next()
	case fyne.KeyP:
		p.player.Previous()
	default:
		return false
	}
	return true
}

// Shutdown unsubscribes from the bus and waits for background commands.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		ids := p.subIDs
		p.subIDs = nil
		p.mu.Unlock()

		for _, id := range ids {
			p.bus.Unsubscribe(id)
		}

		p.cancel()
		p.wg.Wait()
	})
}
