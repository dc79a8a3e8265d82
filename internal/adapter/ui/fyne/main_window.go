package fyne

import (
	"fmt"
	"image/color"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/nuveplayer/nuve/internal/adapter/ui/fyne/widgets"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// Window defaults.
const (
	AppName      = "Nuvé"
	windowWidth  = 1180
	windowHeight = 760

	marqueeWidth    = 48
	marqueeInterval = 300 * time.Millisecond
	waveBars        = 12
)

var (
	modeOrder = []domain.Mode{
		domain.ModeAutoplay, domain.ModeLoop, domain.ModeShuffle,
		domain.ModeTheater, domain.ModeVisualizer,
	}
	modeLabels = map[domain.Mode]string{
		domain.ModeAutoplay:   "Autoplay",
		domain.ModeLoop:       "Loop",
		domain.ModeShuffle:    "Shuffle",
		domain.ModeTheater:    "Theater",
		domain.ModeVisualizer: "Visualizer",
	}
	bandOrder  = []domain.EqualizerBand{domain.BandBass, domain.BandMid, domain.BandTreble}
	bandLabels = map[domain.EqualizerBand]string{
		domain.BandBass:   "Bass",
		domain.BandMid:    "Mid",
		domain.BandTreble: "Treble",
	}
)

// MainWindowOptions configures the shell.
type MainWindowOptions struct {
	// Version is shown in the About dialog
	Version string

	// ScreenURL is the address of the video/YouTube screen page; empty hides the menu item
	ScreenURL string

	// Formats lists the file extensions the library can open
	Formats []string
}

type playlistEntry struct {
	id    string
	label string
}

// MainWindow is the player window implementing ports.PlayerView.
// It handles all UI rendering and user interactions.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// View methods may be called from any goroutine; they hop onto the Fyne
// thread with fyne.Do. Fields below are only touched on that thread.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger
	opts   MainWindowOptions

	// Screens
	welcome fyneapp.CanvasObject
	shell   fyneapp.CanvasObject

	// Now playing
	cover       *canvas.Image
	coverURL    string
	title       *widget.Label
	artist      *widget.Label
	favorite    *widget.Button
	marquee     *widgets.Marquee
	errorBar    *fyneapp.Container
	errorLabel  *widget.Label
	welcomeWave *widgets.WaveStrip

	// Transport dock
	prevButton     *widget.Button
	playButton     *widget.Button
	nextButton     *widget.Button
	currentTime    *widget.Label
	endTime        *widget.Label
	progressSlider *widget.Slider
	volumeSlider   *widget.Slider
	wave           *widgets.WaveStrip
	dragging       bool

	// Library panels
	sidebar    fyneapp.CanvasObject
	queuePanel fyneapp.CanvasObject
	search     *widget.Entry
	filter     *widget.Entry
	searching  *widget.ProgressBarInfinite
	queueList  *widget.List
	queue      []domain.Track
	currentID  string
	favorites  map[string]bool
	results    []domain.Track
	resultList *widget.List
	resultInfo *widget.Label

	// Playlists
	playlistList *widget.List
	playlists    []playlistEntry
	userLists    []domain.Playlist
	activeList   string

	// Settings
	modeChecks  map[domain.Mode]*widget.Check
	bandSliders map[domain.EqualizerBand]*widget.Slider
	quality     *widget.Select

	playing bool
	modes   domain.Modes
	syncing bool

	// Lifecycle management
	stopMarquee chan struct{}
	closeOnce   sync.Once
	closed      atomic.Bool

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, opts MainWindowOptions) *MainWindow {
	w := &MainWindow{
		app:         app,
		logger:      logger.With(slog.String("component", "main_window")),
		opts:        opts,
		favorites:   map[string]bool{},
		modeChecks:  map[domain.Mode]*widget.Check{},
		bandSliders: map[domain.EqualizerBand]*widget.Slider{},
		marquee:     widgets.NewMarquee(AppName, marqueeWidth),
		stopMarquee: make(chan struct{}),
	}

	w.window = app.NewWindow(AppName)
	w.welcome = w.buildWelcome()
	w.shell = w.buildShell()
	w.window.SetContent(w.welcome)
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
	w.window.Resize(fyneapp.NewSize(windowWidth, windowHeight))
	w.window.SetOnClosed(w.stopAnimations)
	w.app.SetIcon(theme.MediaMusicIcon())

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.addShortcuts()
}

// buildWelcome constructs the welcome screen.
func (w *MainWindow) buildWelcome() fyneapp.CanvasObject {
	kicker := widget.NewLabelWithStyle("WELCOME TO THE NEW LISTENING DIMENSION", fyneapp.TextAlignCenter, fyneapp.TextStyle{Monospace: true})

	headline := canvas.NewText("Music. Motion. Emotion.", theme.Color(theme.ColorNameForeground))
	headline.TextSize = 42
	headline.TextStyle = fyneapp.TextStyle{Bold: true}
	headline.Alignment = fyneapp.TextAlignCenter

	copyText := widget.NewLabelWithStyle(
		"A cinematic player designed for focus, vibe and discovery.",
		fyneapp.TextAlignCenter, fyneapp.TextStyle{Italic: true})

	pills := container.NewHBox()
	for _, pill := range []string{"Global 50", "Smart Playlists", "Live Visuals", "YouTube Search"} {
		pills.Add(widget.NewButton(pill, nil))
	}

	enter := widget.NewButtonWithIcon("Enter Nuvé", theme.NavigateNextIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnEnter()
		}
	})
	enter.Importance = widget.HighImportance

	w.welcomeWave = widgets.NewWaveStrip(waveBars)

	return container.NewCenter(container.NewVBox(
		kicker,
		headline,
		copyText,
		container.NewCenter(pills),
		container.NewCenter(container.NewHBox(enter, w.welcomeWave)),
	))
}

// buildShell constructs the player shell.
func (w *MainWindow) buildShell() fyneapp.CanvasObject {
	w.sidebar = w.buildSidebar()
	w.queuePanel = w.buildQueuePanel()

	center := container.NewBorder(w.buildErrorBar(), nil, nil, nil, w.buildStage())
	body := container.NewBorder(nil, nil, w.sidebar, w.queuePanel, center)

	return container.NewBorder(w.buildSearchBar(), w.buildDock(), nil, nil, body)
}

func (w *MainWindow) buildSearchBar() fyneapp.CanvasObject {
	w.search = widget.NewEntry()
	w.search.SetPlaceHolder("Search YouTube")
	w.search.OnSubmitted = func(query string) {
		if w.presenter != nil {
			w.presenter.OnSearchSubmitted(query)
		}
	}

	w.filter = widget.NewEntry()
	w.filter.SetPlaceHolder("Filter queue")
	w.filter.OnChanged = func(text string) {
		if w.presenter != nil {
			w.presenter.OnFilterChanged(text)
		}
	}

	w.searching = widget.NewProgressBarInfinite()
	w.searching.Hide()

	categories := container.NewHBox()
	for _, category := range domain.Categories() {
		categories.Add(widget.NewButton(category.Label(), func() {
			if w.presenter != nil {
				w.presenter.OnCategorySelected(category)
			}
		}))
	}

	searchButton := widget.NewButtonWithIcon("", theme.SearchIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnSearchSubmitted(w.search.Text)
		}
	})

	row := container.NewGridWithColumns(2,
		container.NewBorder(nil, nil, nil, searchButton, w.search),
		w.filter,
	)
	return container.NewVBox(row, categories, w.searching)
}

func (w *MainWindow) buildErrorBar() fyneapp.CanvasObject {
	w.errorLabel = widget.NewLabel("")
	w.errorLabel.Wrapping = fyneapp.TextWrapWord
	dismiss := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnDismissError()
		}
	})
	background := canvas.NewRectangle(color.NRGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0x40})
	w.errorBar = container.NewStack(background,
		container.NewBorder(nil, nil, widget.NewIcon(theme.ErrorIcon()), dismiss, w.errorLabel))
	w.errorBar.Hide()
	return w.errorBar
}

func (w *MainWindow) buildStage() fyneapp.CanvasObject {
	w.cover = canvas.NewImageFromResource(theme.MediaMusicIcon())
	w.cover.FillMode = canvas.ImageFillContain
	w.cover.SetMinSize(fyneapp.NewSize(280, 280))

	w.title = widget.NewLabelWithStyle(AppName, fyneapp.TextAlignCenter, fyneapp.TextStyle{Bold: true})
	w.artist = widget.NewLabelWithStyle("", fyneapp.TextAlignCenter, fyneapp.TextStyle{Italic: true})

	w.favorite = widget.NewButton("♡", func() {
		if w.presenter != nil {
			w.presenter.OnFavoriteClicked()
		}
	})

	info := container.NewVBox(w.title, w.artist, container.NewCenter(w.favorite))
	return container.NewBorder(nil, info, nil, nil, w.cover)
}

func (w *MainWindow) buildSidebar() fyneapp.CanvasObject {
	w.playlistList = widget.NewList(
		func() int { return len(w.playlists) },
		func() fyneapp.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, item fyneapp.CanvasObject) {
			label := item.(*widget.Label)
			entry := w.playlists[id]
			label.TextStyle = fyneapp.TextStyle{Bold: entry.id == w.activeList}
			label.SetText(entry.label)
		},
	)
	w.playlistList.OnSelected = func(id widget.ListItemID) {
		if w.syncing || w.presenter == nil || id >= len(w.playlists) {
			return
		}
		w.presenter.OnPlaylistSelected(w.playlists[id].id)
	}

	create := widget.NewButtonWithIcon("New", theme.ContentAddIcon(), func() {
		showNewPlaylist(w.window, func(name string) {
			if w.presenter != nil && !w.presenter.OnCreatePlaylist(name) {
				w.ShowNotification("Playlist", "Playlist name cannot be empty")
			}
		})
	})
	add := widget.NewButtonWithIcon("Add current", theme.ContentAddIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnAddCurrentToPlaylist()
		}
	})
	remove := widget.NewButtonWithIcon("Remove current", theme.ContentRemoveIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnRemoveCurrentFromPlaylist()
		}
	})
	remove.Importance = widget.LowImportance
	deleteButton := widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), func() {
		if w.presenter != nil && !domain.IsReservedPlaylist(w.activeList) {
			w.presenter.OnDeletePlaylist(w.activeList)
		}
	})
	deleteButton.Importance = widget.DangerImportance

	for _, mode := range modeOrder {
		w.modeChecks[mode] = widget.NewCheck(modeLabels[mode], func(enabled bool) {
			if w.presenter != nil {
				w.presenter.OnModeChanged(mode, enabled)
			}
		})
	}
	modes := container.NewVBox()
	for _, mode := range modeOrder {
		modes.Add(w.modeChecks[mode])
	}

	eq := container.NewVBox()
	for _, band := range bandOrder {
		slider := widget.NewSlider(0, 100)
		slider.OnChangeEnded = func(value float64) {
			if w.presenter != nil {
				w.presenter.OnEqualizerChanged(band, value)
			}
		}
		w.bandSliders[band] = slider
		eq.Add(container.NewBorder(nil, nil, widget.NewLabel(bandLabels[band]), nil, slider))
	}

	qualities := make([]string, 0, len(domain.Qualities()))
	for _, q := range domain.Qualities() {
		qualities = append(qualities, string(q))
	}
	w.quality = widget.NewSelect(qualities, func(selected string) {
		if w.syncing || w.presenter == nil {
			return
		}
		w.presenter.OnQualitySelected(domain.StreamQuality(selected))
	})

	playlistTools := container.NewVBox(create, add, remove, deleteButton)
	settings := container.NewVBox(
		widget.NewCard("Modes", "", modes),
		widget.NewCard("Equalizer", "", eq),
		widget.NewCard("Quality", "", w.quality),
	)

	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Playlists", theme.ListIcon(),
			container.NewBorder(nil, playlistTools, nil, nil, w.playlistList)),
		container.NewTabItemWithIcon("Settings", theme.SettingsIcon(), container.NewVScroll(settings)),
	)
	return withMinWidth(tabs, 260)
}

func (w *MainWindow) buildQueuePanel() fyneapp.CanvasObject {
	w.queueList = widget.NewList(
		func() int { return len(w.queue) },
		func() fyneapp.CanvasObject {
			row := widgets.NewTrackRow(func(trackID string) {
				if w.presenter != nil {
					w.presenter.OnTrackSelected(trackID)
				}
			})
			row.SetSecondaryTapped(w.showTrackMenu)
			return row
		},
		func(id widget.ListItemID, item fyneapp.CanvasObject) {
			track := w.queue[id]
			item.(*widgets.TrackRow).Bind(track, track.ID == w.currentID, w.favorites[track.ID])
		},
	)

	w.resultInfo = widget.NewLabel("No search yet")
	w.resultList = widget.NewList(
		func() int { return len(w.results) },
		func() fyneapp.CanvasObject {
			return widgets.NewTrackRow(w.playResult)
		},
		func(id widget.ListItemID, item fyneapp.CanvasObject) {
			item.(*widgets.TrackRow).Bind(w.results[id], false, false)
		},
	)

	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Queue", theme.MediaMusicIcon(), w.queueList),
		container.NewTabItemWithIcon("Results", theme.SearchIcon(),
			container.NewBorder(w.resultInfo, nil, nil, nil, w.resultList)),
	)
	return withMinWidth(tabs, 340)
}

func (w *MainWindow) buildDock() fyneapp.CanvasObject {
	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnPreviousClicked()
		}
	})
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnPlayPauseClicked()
		}
	})
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), func() {
		if w.presenter != nil {
			w.presenter.OnNextClicked()
		}
	})

	w.progressSlider = widget.NewSlider(0, 1)
	w.progressSlider.Step = 0.1
	w.progressSlider.OnChanged = func(float64) {
		w.dragging = true
	}
	w.progressSlider.OnChangeEnded = func(value float64) {
		w.dragging = false
		if w.presenter != nil {
			w.presenter.OnSeekRequested(value)
		}
	}
	w.currentTime = widget.NewLabel(formatClock(0))
	w.endTime = widget.NewLabel(formatClock(0))

	w.volumeSlider = widget.NewSlider(0, 1)
	w.volumeSlider.Step = 0.01
	w.volumeSlider.OnChanged = func(value float64) {
		if w.presenter != nil {
			w.presenter.OnVolumeChanged(value)
		}
	}
	volumeIcon := widget.NewIcon(theme.VolumeUpIcon())
	volume := container.NewBorder(nil, nil, volumeIcon, nil,
		container.NewGridWrap(fyneapp.NewSize(140, 36), w.volumeSlider))

	w.wave = widgets.NewWaveStrip(waveBars)

	buttons := container.NewHBox(w.prevButton, w.playButton, w.nextButton)
	progress := container.NewBorder(nil, nil, w.currentTime, w.endTime, w.progressSlider)
	right := container.NewHBox(w.wave, volume)
	return container.NewPadded(container.NewBorder(nil, nil, buttons, right, progress))
}

// withMinWidth keeps a side panel from collapsing to its content width.
func withMinWidth(obj fyneapp.CanvasObject, width float32) fyneapp.CanvasObject {
	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyneapp.NewSize(width, 0))
	return container.NewStack(spacer, obj)
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	openFile := fyneapp.NewMenuItem("Open", w.handleOpenFile)
	openFolder := fyneapp.NewMenuItem("Open Folder", w.handleOpenFolder)
	items := []*fyneapp.MenuItem{openFile, openFolder}

	if w.opts.ScreenURL != "" {
		items = append(items, separator, fyneapp.NewMenuItem("Open Screen", w.handleOpenScreen))
	}

	fileMenu := fyneapp.NewMenu("File", items...)
	helpMenu := fyneapp.NewMenu("Help", fyneapp.NewMenuItem("About", func() {
		showAbout(w.window, w.opts.Version)
	}))
	return []*fyneapp.Menu{fileMenu, helpMenu}
}

// handleOpenFile handles the "Open" menu action.
func (w *MainWindow) handleOpenFile() {
	if w.presenter == nil {
		return
	}
	showOpenFile(w.window, w.logger, w.opts.Formats, func(path string) {
		if err := w.presenter.OnFileOpened(path); err != nil {
			w.ShowNotification("Error", fmt.Sprintf("Failed to open file: %v", err))
		}
	})
}

// handleOpenFolder handles the "Open Folder" menu action.
func (w *MainWindow) handleOpenFolder() {
	if w.presenter == nil {
		return
	}
	showOpenFolder(w.window, w.logger, w.presenter.OnFolderOpened)
}

// handleOpenScreen opens the screen page in the browser.
func (w *MainWindow) handleOpenScreen() {
	u, err := url.Parse(w.opts.ScreenURL)
	if err != nil {
		w.logger.Error("invalid screen url", slog.String("url", w.opts.ScreenURL), slog.Any("error", err))
		return
	}
	if err := w.app.OpenURL(u); err != nil {
		w.logger.Error("failed to open screen", slog.Any("error", err))
	}
}

// showTrackMenu shows the context menu of a queued track.
func (w *MainWindow) showTrackMenu(trackID string, pos fyneapp.Position) {
	if w.presenter == nil {
		return
	}

	favoriteLabel := "Add to favorites"
	if w.favorites[trackID] {
		favoriteLabel = "Remove from favorites"
	}
	items := []*fyneapp.MenuItem{
		fyneapp.NewMenuItem("Play", func() { w.presenter.OnTrackSelected(trackID) }),
		fyneapp.NewMenuItem(favoriteLabel, func() { w.presenter.OnToggleFavorite(trackID) }),
	}

	if len(w.userLists) > 0 {
		addTo := fyneapp.NewMenuItem("Add to playlist", nil)
		children := make([]*fyneapp.MenuItem, 0, len(w.userLists))
		for _, pl := range w.userLists {
			children = append(children, fyneapp.NewMenuItem(pl.Name, func() {
				w.presenter.OnAddToPlaylist(pl.ID, trackID)
			}))
		}
		addTo.ChildMenu = fyneapp.NewMenu("", children...)
		items = append(items, addTo)
	}

	widget.ShowPopUpMenuAtPosition(fyneapp.NewMenu("", items...), w.window.Canvas(), pos)
}

func (w *MainWindow) playResult(trackID string) {
	if w.presenter == nil {
		return
	}
	for _, track := range w.results {
		if track.ID == trackID {
			w.presenter.OnResultSelected(track)
			return
		}
	}
}

// addShortcuts routes keys typed outside text fields to the presenter.
func (w *MainWindow) addShortcuts() {
	w.window.Canvas().SetOnTypedKey(func(ev *fyneapp.KeyEvent) {
		if w.presenter == nil || w.window.Content() != w.shell {
			return
		}
		w.presenter.HandleKey(ev.Name, w.typing())
	})
}

// typing reports whether a text field has keyboard focus.
func (w *MainWindow) typing() bool {
	_, ok := w.window.Canvas().Focused().(*widget.Entry)
	return ok
}

// startMarquee scrolls long titles. It runs until Close.
func (w *MainWindow) startMarquee() {
	go func() {
		ticker := time.NewTicker(marqueeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stopMarquee:
				return
			case <-ticker.C:
				if !w.marquee.Scrolls() {
					continue
				}
				frame := w.marquee.Frame()
				fyneapp.Do(func() { w.title.SetText(frame) })
			}
		}
	}()
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.startMarquee()
	w.window.ShowAndRun()
}

// Close closes the window and stops the title animation.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	if w.closed.Load() {
		return
	}
	w.window.Close()
	w.stopAnimations()
}

func (w *MainWindow) stopAnimations() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.stopMarquee)
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// PlayerView interface implementation

// ShowWelcome displays the welcome screen.
func (w *MainWindow) ShowWelcome() {
	fyneapp.Do(func() {
		w.window.SetContent(w.welcome)
		w.welcomeWave.SetActive(true)
	})
}

// ShowPlayer replaces the welcome screen with the player shell.
func (w *MainWindow) ShowPlayer() {
	fyneapp.Do(func() {
		w.welcomeWave.SetActive(false)
		w.window.SetContent(w.shell)
	})
}

// SetNowPlaying shows the selected track.
func (w *MainWindow) SetNowPlaying(track *domain.Track, favorite bool) {
	fyneapp.Do(func() {
		if track == nil {
			w.marquee.SetText(AppName)
			w.title.SetText(AppName)
			w.artist.SetText("Nothing selected")
			w.favorite.SetText("♡")
			w.favorite.Disable()
			w.setCover("")
			return
		}

		w.marquee.SetText(track.Title)
		w.title.SetText(w.marquee.Frame())
		w.artist.SetText(track.Artist)
		if favorite {
			w.favorite.SetText("♥")
		} else {
			w.favorite.SetText("♡")
		}
		w.favorite.Enable()

		cover := track.CoverURL
		if track.MediaType == domain.MediaVideo && track.VideoPoster != "" {
			cover = track.VideoPoster
		}
		w.setCover(cover)
	})
}

// setCover loads cover art in the background. A newer cover wins.
func (w *MainWindow) setCover(coverURL string) {
	if coverURL == w.coverURL {
		return
	}
	w.coverURL = coverURL

	if coverURL == "" {
		w.cover.Resource = theme.MediaMusicIcon()
		w.cover.Refresh()
		return
	}

	go func() {
		resource, err := loadCover(coverURL)
		if err != nil {
			w.logger.Debug("cover art unavailable", slog.String("url", coverURL), slog.Any("error", err))
			resource = theme.MediaMusicIcon()
		}
		fyneapp.Do(func() {
			if w.coverURL != coverURL {
				return
			}
			w.cover.Resource = resource
			w.cover.Refresh()
		})
	}()
}

// loadCover reads cover art from a file or http(s) URI.
func loadCover(coverURL string) (fyneapp.Resource, error) {
	uri, err := storage.ParseURI(coverURL)
	if err != nil {
		return nil, err
	}
	if uri.Scheme() == "file" {
		return fyneapp.LoadResourceFromPath(uri.Path())
	}
	return fyneapp.LoadResourceFromURLString(coverURL)
}

// SetPlayState updates the play/pause button state.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		w.playing = playing
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
		w.wave.SetActive(w.playing && w.modes.Visualizer)
	})
}

// SetProgress updates the progress slider and time labels.
func (w *MainWindow) SetProgress(position, duration time.Duration) {
	fyneapp.Do(func() {
		w.currentTime.SetText(formatClock(position))
		w.endTime.SetText(formatClock(duration))
		if w.dragging {
			return
		}
		w.progressSlider.Max = max(duration.Seconds(), 1)
		w.progressSlider.Value = min(position.Seconds(), w.progressSlider.Max)
		w.progressSlider.Refresh()
	})
}

// SetVolume updates the volume slider.
func (w *MainWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		w.volumeSlider.Value = min(max(volume, 0), 1)
		w.volumeSlider.Refresh()
	})
}

// SetQueue shows the playable tracks.
func (w *MainWindow) SetQueue(tracks []domain.Track, currentID string, favorites []string) {
	fyneapp.Do(func() {
		w.queue = tracks
		w.currentID = currentID
		w.favorites = make(map[string]bool, len(favorites))
		for _, id := range favorites {
			w.favorites[id] = true
		}
		w.queueList.Refresh()
	})
}

// SetPlaylists shows the playlists and the active selector.
func (w *MainWindow) SetPlaylists(playlists []domain.Playlist, activeID string) {
	fyneapp.Do(func() {
		entries := []playlistEntry{
			{id: domain.PlaylistAll, label: "All"},
			{id: domain.PlaylistFavorites, label: "Favorites"},
		}
		for _, pl := range playlists {
			entries = append(entries, playlistEntry{
				id:    pl.ID,
				label: fmt.Sprintf("%s (%d)", pl.Name, len(pl.TrackIDs)),
			})
		}
		w.playlists = entries
		w.userLists = playlists
		w.activeList = activeID

		w.syncing = true
		w.playlistList.UnselectAll()
		for i, entry := range entries {
			if entry.id == activeID {
				w.playlistList.Select(i)
				break
			}
		}
		w.syncing = false
		w.playlistList.Refresh()
	})
}

// SetModes updates the toggles and the layout that depends on them.
func (w *MainWindow) SetModes(modes domain.Modes) {
	fyneapp.Do(func() {
		w.modes = modes
		for mode, check := range w.modeChecks {
			check.Checked = modes.Get(mode)
			check.Refresh()
		}

		if modes.Theater {
			w.sidebar.Hide()
			w.queuePanel.Hide()
		} else {
			w.sidebar.Show()
			w.queuePanel.Show()
		}
		w.wave.SetActive(w.playing && modes.Visualizer)
	})
}

// SetEqualizer updates the band sliders.
func (w *MainWindow) SetEqualizer(eq domain.Equalizer) {
	fyneapp.Do(func() {
		levels := map[domain.EqualizerBand]float64{
			domain.BandBass:   eq.Bass,
			domain.BandMid:    eq.Mid,
			domain.BandTreble: eq.Treble,
		}
		for band, slider := range w.bandSliders {
			slider.Value = levels[band]
			slider.Refresh()
		}
	})
}

// SetStreamQuality updates the quality selector.
func (w *MainWindow) SetStreamQuality(quality domain.StreamQuality) {
	fyneapp.Do(func() {
		w.syncing = true
		w.quality.SetSelected(string(quality))
		w.syncing = false
	})
}

// SetSearchResults shows the latest results.
func (w *MainWindow) SetSearchResults(query string, results []domain.Track) {
	fyneapp.Do(func() {
		w.results = results
		switch {
		case query == "":
			w.resultInfo.SetText("No search yet")
		case len(results) == 0:
			w.resultInfo.SetText(fmt.Sprintf("No results for %q", query))
		default:
			w.resultInfo.SetText(fmt.Sprintf("%d results for %q", len(results), query))
		}
		w.resultList.Refresh()
	})
}

// SetSearching toggles the busy indicator.
func (w *MainWindow) SetSearching(busy bool) {
	fyneapp.Do(func() {
		if busy {
			w.searching.Show()
			w.searching.Start()
		} else {
			w.searching.Stop()
			w.searching.Hide()
		}
	})
}

// ShowError displays the error banner.
func (w *MainWindow) ShowError(message string) {
	fyneapp.Do(func() {
		w.errorLabel.SetText(message)
		w.errorBar.Show()
	})
}

// ClearError hides the error banner.
func (w *MainWindow) ClearError() {
	fyneapp.Do(func() {
		w.errorLabel.SetText("")
		w.errorBar.Hide()
	})
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

// formatClock renders a duration as mm:ss.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Verify PlayerView implementation
var _ ports.PlayerView = (*MainWindow)(nil)
