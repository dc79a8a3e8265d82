package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// User-visible library messages.
const (
	MsgSearchMissingKey   = "Set NUVE_YOUTUBE_API_KEY to enable YouTube search."
	MsgSearchFailed       = "Unable to fetch YouTube results right now."
	MsgCategoryLoadFailed = "Unable to load category right now."
)

// LibraryService grows the queue from outside the catalog: YouTube search,
// curated categories and local folders.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	search  ports.SearchProvider
	scanner ports.LibraryScanner
	store   *StateStore
	bus     ports.EventBus

	// Search results
	results   []domain.Track
	query     string
	searchSeq uint64
	// errSources lists the error banners raised by failed searches
	errSources []string

	// Scan state
	scanning   bool
	cancelScan context.CancelFunc

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service. search and scanner may
// be nil when the corresponding feature is disabled.
func NewLibraryService(
	logger *slog.Logger,
	search ports.SearchProvider,
	scanner ports.LibraryScanner,
	store *StateStore,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger:  logger.With(slog.String("service", "library")),
		search:  search,
		scanner: scanner,
		store:   store,
		bus:     bus,
	}
}

// Search runs a free-text YouTube search and keeps the results.
// A blank query clears the results. When two searches overlap, only the
// latest one updates the results.
func (s *LibraryService) Search(ctx context.Context, query string) ([]domain.Track, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	if query == "" {
		s.setResults(seq, query, []domain.Track{})
		return []domain.Track{}, nil
	}
	if s.search == nil {
		err := domain.NewSearchError("query", query, domain.ErrMissingCredential)
		s.searchFailed(seq, query, MsgSearchMissingKey, true, err)
		return nil, err
	}

	tracks, err := s.search.SearchByQuery(ctx, query)
	if err != nil {
		missing := errors.Is(err, domain.ErrMissingCredential)
		msg := MsgSearchFailed
		if missing {
			msg = MsgSearchMissingKey
		}
		searchErr := domain.NewSearchError("query", query, err)
		s.searchFailed(seq, query, msg, missing, searchErr)
		return nil, searchErr
	}

	if tracks == nil {
		tracks = []domain.Track{}
	}
	s.setResults(seq, query, tracks)
	return tracks, nil
}

// LoadCategory fetches a curated category, appends it to the queue and
// starts playing its first track. On failure nothing changes.
func (s *LibraryService) LoadCategory(ctx context.Context, category domain.MusicCategory) ([]domain.Track, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", category, domain.ErrUnknownCategory.Error())
	}

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	if s.search == nil {
		err := domain.NewSearchError("category", string(category), domain.ErrMissingCredential)
		s.categoryFailed(category, err)
		return nil, err
	}

	tracks, err := s.search.SearchByCategory(ctx, category, domain.DefaultCategoryLimit)
	if err != nil {
		searchErr := domain.NewSearchError("category", string(category), err)
		s.categoryFailed(category, searchErr)
		return nil, searchErr
	}

	s.setResults(seq, string(category), tracks)
	s.store.AddTracks(tracks)
	if len(tracks) > 0 {
		s.store.PlayTrack(tracks[0].ID)
	}

	s.logger.Info("category loaded",
		slog.String("category", string(category)),
		slog.Int("tracks", len(tracks)))
	s.bus.Publish(domain.NewCategoryLoadedEvent(category, tracks))
	return tracks, nil
}

func (s *LibraryService) categoryFailed(category domain.MusicCategory, err error) {
	s.logger.Warn("category load failed",
		slog.String("category", string(category)),
		slog.Any("error", err))

	s.mu.Lock()
	s.markErrorLocked(domain.ErrorSourceCategory)
	s.mu.Unlock()

	s.bus.Publish(domain.NewSearchFailedEvent(string(category), MsgCategoryLoadFailed, errors.Is(err, domain.ErrMissingCredential)))
	s.bus.Publish(domain.NewPlayerErrorEvent(domain.ErrorSourceCategory, MsgCategoryLoadFailed, err))
}

// setResults stores the results of search seq unless a newer search started.
func (s *LibraryService) setResults(seq uint64, query string, tracks []domain.Track) {
	s.mu.Lock()
	if seq != s.searchSeq {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded search results", slog.String("query", query))
		return
	}
	s.results = slices.Clone(tracks)
	s.query = query
	cleared := s.errSources
	s.errSources = nil
	s.mu.Unlock()

	for _, source := range cleared {
		s.bus.Publish(domain.NewPlayerErrorClearedEvent(source))
	}
	s.bus.Publish(domain.NewSearchCompletedEvent(query, slices.Clone(tracks)))
}

func (s *LibraryService) markErrorLocked(source string) {
	if !slices.Contains(s.errSources, source) {
		s.errSources = append(s.errSources, source)
	}
}

// searchFailed reports a failed search. Prior results are kept.
func (s *LibraryService) searchFailed(seq uint64, query, msg string, missing bool, err error) {
	s.mu.Lock()
	if seq != s.searchSeq {
		s.mu.Unlock()
		return
	}
	s.markErrorLocked(domain.ErrorSourceSearch)
	s.mu.Unlock()

	s.logger.Warn("search failed", slog.String("query", query), slog.Any("error", err))
	s.bus.Publish(domain.NewSearchFailedEvent(query, msg, missing))
	s.bus.Publish(domain.NewPlayerErrorEvent(domain.ErrorSourceSearch, msg, err))
}

// Results returns the latest search or category results.
func (s *LibraryService) Results() []domain.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.results)
}

// LastQuery returns the query of the latest results.
func (s *LibraryService) LastQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// PlayResult queues a result if needed and plays it.
func (s *LibraryService) PlayResult(track domain.Track) {
	s.store.AddTrack(track)
	s.store.PlayTrack(track.ID)
}

// OpenFile reads a single local file, queues it and plays it.
func (s *LibraryService) OpenFile(path string) (domain.Track, error) {
	if s.scanner == nil {
		return domain.Track{}, domain.NewServiceError("LibraryService", "OpenFile", "no library scanner configured", domain.ErrNotInitialized)
	}
	if !s.IsFormatSupported(path) {
		return domain.Track{}, domain.NewServiceError("LibraryService", "OpenFile", "unsupported file", domain.ErrUnsupportedFormat)
	}

	track, err := s.scanner.ReadTrack(path)
	if err != nil {
		return domain.Track{}, domain.NewServiceError("LibraryService", "OpenFile", "failed to read file", err)
	}
	s.PlayResult(track)
	s.logger.Info("file opened", slog.String("path", path))
	return track, nil
}

// ScanFolder scans a folder recursively for supported audio files and
// appends them to the queue. Publishes progress events during scanning.
func (s *LibraryService) ScanFolder(ctx context.Context, folderPath string) ([]domain.Track, error) {
	if s.scanner == nil {
		return nil, domain.NewServiceError("LibraryService", "ScanFolder", "no library scanner configured", domain.ErrNotInitialized)
	}

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, domain.NewServiceError("LibraryService", "ScanFolder", "scan already in progress", nil)
	}
	s.scanning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	s.bus.Publish(domain.NewScanStartedEvent(folderPath))

	files, err := s.collectAudioFiles(ctx, folderPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.bus.Publish(domain.NewScanCancelledEvent("user cancelled"))
			return nil, domain.ErrScanCancelled
		}
		return nil, domain.NewServiceError("LibraryService", "ScanFolder", "failed to walk folder", err)
	}

	tracks := make([]domain.Track, 0, len(files))
	for i, path := range files {
		select {
		case <-ctx.Done():
			s.bus.Publish(domain.NewScanCancelledEvent("user cancelled"))
			return tracks, domain.ErrScanCancelled
		default:
		}

		track, err := s.scanner.ReadTrack(path)
		if err != nil {
			// Unreadable files are skipped.
			s.logger.Debug("skipping file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		tracks = append(tracks, track)

		s.bus.Publish(domain.NewScanProgressEvent(domain.ScanProgress{
			CurrentPath:  path,
			FilesScanned: i + 1,
			TracksFound:  len(tracks),
		}))
	}

	added := s.store.AddTracks(tracks)
	s.logger.Info("folder scanned",
		slog.String("path", folderPath),
		slog.Int("files", len(files)),
		slog.Int("added", added))
	s.bus.Publish(domain.NewScanCompletedEvent(tracks))
	return tracks, nil
}

// CancelScan cancels the running scan.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}
	if s.cancelScan != nil {
		s.cancelScan()
	}
	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// IsFormatSupported checks if a file format is supported.
func (s *LibraryService) IsFormatSupported(path string) bool {
	if s.scanner == nil {
		return false
	}
	return lo.Contains(s.scanner.SupportedFormats(), strings.ToLower(filepath.Ext(path)))
}

// collectAudioFiles recursively collects all supported files in a directory.
func (s *LibraryService) collectAudioFiles(ctx context.Context, folderPath string) ([]string, error) {
	files := make([]string, 0)

	err := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return context.Canceled
		}
		if err != nil {
			if path == folderPath {
				return err
			}
			// Skip entries we can't access
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if s.IsFormatSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Watch keeps the queue in step with a folder: supported files created or
// rewritten in it are read and appended. It blocks until ctx is done.
func (s *LibraryService) Watch(ctx context.Context, folderPath string) error {
	if s.scanner == nil {
		return domain.NewServiceError("LibraryService", "Watch", "no library scanner configured", domain.ErrNotInitialized)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.NewServiceError("LibraryService", "Watch", "failed to create watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(folderPath); err != nil {
		return domain.NewServiceError("LibraryService", "Watch", "failed to watch folder", err)
	}
	s.logger.Info("watching library folder", slog.String("path", folderPath))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !s.IsFormatSupported(event.Name) {
				continue
			}
			track, err := s.scanner.ReadTrack(event.Name)
			if err != nil {
				s.logger.Debug("skipping file", slog.String("path", event.Name), slog.Any("error", err))
				continue
			}
			if s.store.AddTrack(track) {
				s.logger.Info("track added from library folder", slog.String("path", event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("library watcher error", slog.Any("error", err))
		}
	}
}

// Shutdown cancels a running scan.
func (s *LibraryService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}
}
