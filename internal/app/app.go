// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/nuveplayer/nuve/internal/adapter/backend/audio"
	"github.com/nuveplayer/nuve/internal/adapter/backend/bridge"
	"github.com/nuveplayer/nuve/internal/adapter/backend/mock"
	"github.com/nuveplayer/nuve/internal/adapter/catalog"
	"github.com/nuveplayer/nuve/internal/adapter/eventbus"
	"github.com/nuveplayer/nuve/internal/adapter/repository/memory"
	"github.com/nuveplayer/nuve/internal/adapter/repository/remote"
	"github.com/nuveplayer/nuve/internal/adapter/search/youtube"
	fyneui "github.com/nuveplayer/nuve/internal/adapter/ui/fyne"
	"github.com/nuveplayer/nuve/internal/config"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/logger"
	"github.com/nuveplayer/nuve/internal/ports"
	"github.com/nuveplayer/nuve/internal/service"
)

// AppID is the unique application identifier.
const AppID = "com.nuveplayer.nuve"

const httpTimeout = 15 * time.Second

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for the CLI
type Application struct {
	// Core dependencies
	logger   *slog.Logger
	closeLog func() error
	fyneApp  fyne.App
	settings *config.Config

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	backends []ports.MediaBackend
	hub      *bridge.Hub

	// Services
	store       *service.StateStore
	player      *service.Synchronizer
	preferences *service.PreferenceService
	library     *service.LibraryService

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	startOnce    sync.Once
	shutdownOnce sync.Once
}

// Options holds application options.
type Options struct {
	// Settings is the loaded configuration (config.Default() when nil).
	Settings *config.Config

	// UseMockBackends replaces the audio device and the screen bridge with
	// in-memory backends (for testing).
	UseMockBackends bool

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(opts Options) (*Application, error) {
	settings := opts.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{settings: settings, ctx: ctx, cancel: cancel}

	// Step 1: Create Fyne application
	if opts.TestFyneApp != nil {
		app.fyneApp = opts.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(AppID)
	}

	// Step 2: Create logger
	app.logger, app.closeLog = logger.NewLogger(logger.Config{
		Level:      logger.ParseLevel(settings.Log.Level),
		Format:     settings.Log.Format,
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))

	// Step 4: Create media backends
	if opts.UseMockBackends {
		app.backends = app.mockBackends(domain.BackendNativeAudio, domain.BackendNativeVideo, domain.BackendEmbeddedWidget)
	} else {
		app.backends = app.mediaBackends()
	}

	// Step 5: Create catalog, profile and search adapters
	client := &http.Client{Timeout: httpTimeout}
	catalogProvider := app.catalogProvider(client)
	profiles := app.profileRepository(client)

	var search ports.SearchProvider
	if settings.YouTube.APIKey != "" {
		search = youtube.New(app.logger, settings.YouTube.APIKey,
			youtube.WithRateLimit(settings.YouTube.RequestsPerSecond, settings.YouTube.Burst))
	} else {
		app.logger.Warn("no YouTube API key configured, search is disabled")
	}

	// Step 6: Create services (with dependency injection)
	app.store = service.NewStateStore(app.logger, app.eventBus)
	app.player = service.NewSynchronizer(app.logger, app.store, app.eventBus, app.backends)
	app.preferences = service.NewPreferenceService(app.logger, catalogProvider, profiles,
		app.store, app.eventBus, settings.API.UserID)
	scanner := catalog.NewTagScanner()
	app.library = service.NewLibraryService(app.logger, search, scanner, app.store, app.eventBus)

	// Step 7: Create UI
	screenURL := ""
	if app.hub != nil {
		screenURL = "http://" + settings.Bridge.Addr + "/"
	}
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.logger, fyneui.MainWindowOptions{
		Version:   GetVersionInfo().Version,
		ScreenURL: screenURL,
		Formats:   scanner.SupportedFormats(),
	})

	// Step 8: Create Presenter and wire with UI
	app.presenter = fyneui.NewPresenter(
		app.logger,
		app.store,
		app.player,
		app.library,
		app.eventBus,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	return app, nil
}

// mediaBackends creates the speaker backend and the bridged screens.
// Without a usable audio device the native audio backend is simulated.
func (a *Application) mediaBackends() []ports.MediaBackend {
	var backends []ports.MediaBackend

	speaker, err := audio.New(a.logger)
	if err != nil {
		a.logger.Warn("audio device unavailable, using simulated audio",
			slog.Bool("audio_available", audio.AudioAvailable),
			slog.Any("error", err))
		backends = append(backends, a.mockBackends(domain.BackendNativeAudio)...)
	} else {
		backends = append(backends, speaker)
	}

	a.hub = bridge.NewHub(a.logger)
	return append(backends, a.hub.Video(), a.hub.Widget())
}

func (a *Application) mockBackends(kinds ...domain.BackendKind) []ports.MediaBackend {
	backends := make([]ports.MediaBackend, 0, len(kinds))
	for _, kind := range kinds {
		b := mock.NewBackend(kind)
		b.SetLogger(a.logger.With(slog.String("backend", "mock")))
		backends = append(backends, b)
	}
	return backends
}

// catalogProvider reads the catalog from the profile API when one is
// configured, falling back to the bundled demo catalog.
func (a *Application) catalogProvider(client *http.Client) ports.CatalogProvider {
	if a.settings.API.BaseURL == "" {
		return catalog.NewDemo()
	}
	return catalog.NewFallback(a.logger,
		catalog.NewHTTP(a.logger, a.settings.API.BaseURL, client),
		catalog.NewDemo())
}

func (a *Application) profileRepository(client *http.Client) ports.ProfileRepository {
	if a.settings.API.ProfileStore == config.ProfileStoreRemote {
		return remote.NewProfileRepository(a.logger, a.settings.API.BaseURL, client)
	}
	return memory.NewProfileRepository(a.fyneApp.Preferences(), a.logger)
}

// Start launches the background work: the screen bridge, profile
// hydration and the library folder. It runs once.
func (a *Application) Start() {
	a.startOnce.Do(func() {
		if a.hub != nil {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				if err := a.hub.ListenAndServe(a.ctx, a.settings.Bridge.Addr); err != nil {
					a.logger.Error("screen bridge failed", slog.Any("error", err))
				}
			}()
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.preferences.Hydrate(a.ctx); err != nil {
				a.logger.Warn("failed to restore profile", slog.Any("error", err))
			}
			a.loadLibrary()
		}()
	})
}

// loadLibrary scans the configured library folder and, when enabled,
// keeps watching it. It blocks until the application stops watching.
func (a *Application) loadLibrary() {
	dir := a.settings.Library.Dir
	if dir == "" {
		return
	}
	if _, err := a.library.ScanFolder(a.ctx, dir); err != nil {
		if !errors.Is(err, domain.ErrScanCancelled) {
			a.logger.Warn("library scan failed", slog.String("path", dir), slog.Any("error", err))
		}
		return
	}
	if !a.settings.Library.Watch {
		return
	}
	if err := a.library.Watch(a.ctx, dir); err != nil {
		a.logger.Warn("library watch failed", slog.String("path", dir), slog.Any("error", err))
	}
}

// Run starts the application.
// It blocks until the window is closed.
func (a *Application) Run() {
	a.Start()
	a.logger.Info("Nuvé started")
	a.mainWindow.ShowAndRun()
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times (idempotent).
func (a *Application) Shutdown() error {
	var errs []error
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		// Shutdown UI and presenter
		a.presenter.Shutdown()
		a.mainWindow.Close()

		// Stop background work
		a.cancel()
		a.wg.Wait()

		// Shutdown services (in reverse order of dependency)
		a.player.Shutdown()
		a.preferences.Shutdown()
		a.library.Shutdown()

		// Shutdown backends
		for _, b := range a.backends {
			if err := b.Close(); err != nil {
				a.logger.Warn("failed to close backend",
					slog.String("kind", b.Kind().String()), slog.Any("error", err))
				errs = append(errs, err)
			}
		}
		if a.hub != nil {
			a.hub.Close()
		}

		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, err)
		}

		a.logger.Info("application shutdown complete")
		if err := a.closeLog(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// GetFyneApp returns the Fyne application.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetServices returns the application services.
func (a *Application) GetServices() (*service.StateStore, *service.Synchronizer, *service.PreferenceService, *service.LibraryService) {
	return a.store, a.player, a.preferences, a.library
}
