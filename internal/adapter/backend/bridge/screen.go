package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

// Screen is the media backend rendered by a connected screen.
//
// Load waits for a ready screen, so the first widget load also waits for
// the player script. Later loads on the same screen do not.
//
// Thread-safety: This implementation is thread-safe.
type Screen struct {
	hub    *Hub
	kind   domain.BackendKind
	logger *slog.Logger

	mu       sync.Mutex
	conn     *conn
	trackID  string
	listener ports.BackendListener
	volume   float64
	muted    bool
	closed   bool
}

func newScreen(hub *Hub, kind domain.BackendKind) *Screen {
	return &Screen{
		hub:    hub,
		kind:   kind,
		logger: hub.logger.With(slog.String("backend", kind.String())),
		volume: 1,
	}
}

// Kind returns the backend kind.
func (s *Screen) Kind() domain.BackendKind {
	return s.kind
}

// Load asks the screen to load track and waits for its answer.
func (s *Screen) Load(ctx context.Context, track domain.Track, source string, listener ports.BackendListener) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.ErrClosed
	}

	msg := Message{Type: MsgLoad, TrackID: track.ID}
	switch s.kind {
	case domain.BackendEmbeddedWidget:
		if track.YouTubeVideoID == "" {
			return domain.NewBackendError("load", s.kind, track.ID, "track has no video id", domain.ErrNoSource)
		}
		msg.VideoID = track.YouTubeVideoID
	default:
		if source == "" {
			return domain.NewBackendError("load", s.kind, source, "empty source", domain.ErrNoSource)
		}
		msg.Source = source
		msg.Poster = track.VideoPoster
	}

	c, err := s.hub.wait(ctx, s.kind)
	if err != nil {
		if errors.Is(err, domain.ErrNoScreen) {
			return domain.NewBackendError("load", s.kind, track.ID, "no screen connected", err)
		}
		return err
	}

	// Events for the track are accepted from here on; the screen may report
	// readiness before it answers.
	s.mu.Lock()
	s.conn = c
	s.trackID = track.ID
	s.listener = listener
	volume, muted := s.volume, s.muted
	s.mu.Unlock()

	resp, err := c.request(ctx, msg)
	if err != nil {
		s.detach(c, track.ID)
		if errors.Is(err, domain.ErrNoScreen) {
			return domain.NewBackendError("load", s.kind, track.ID, "screen disconnected", err)
		}
		return err
	}
	if resp.Error != "" {
		s.detach(c, track.ID)
		return domain.NewBackendError("load", s.kind, track.ID, resp.Error, nil)
	}

	_ = c.post(Message{Type: MsgVolume, Volume: volume, Muted: muted})
	s.logger.Debug("source loaded", slog.String("track_id", track.ID))
	return nil
}

func (s *Screen) detach(c *conn, trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == c && s.trackID == trackID {
		s.conn = nil
		s.trackID = ""
		s.listener = nil
	}
}

// handle turns a screen event into a backend event for the loaded track.
func (s *Screen) handle(c *conn, msg Message) {
	s.mu.Lock()
	listener := s.listener
	current := s.conn == c && msg.TrackID == s.trackID
	s.mu.Unlock()

	if listener == nil || !current {
		s.logger.Debug("dropping screen event",
			slog.String("type", string(msg.Type)),
			slog.String("track_id", msg.TrackID))
		return
	}

	event, ok := s.eventOf(msg)
	if !ok {
		return
	}
	listener(event)
}

func (s *Screen) eventOf(msg Message) (domain.BackendEvent, bool) {
	switch msg.Type {
	case MsgReady:
		return domain.BackendEvent{Kind: domain.BackendEventReady, Duration: duration(msg.Duration)}, true
	case MsgClock:
		return domain.BackendEvent{
			Kind:     domain.BackendEventClock,
			Position: duration(msg.Position),
			Duration: duration(msg.Duration),
		}, true
	case MsgPlaying:
		return domain.BackendEvent{Kind: domain.BackendEventPlaying}, true
	case MsgPaused:
		return domain.BackendEvent{Kind: domain.BackendEventPaused}, true
	case MsgEnded:
		return domain.BackendEvent{Kind: domain.BackendEventEnded}, true
	case MsgState:
		if msg.State == nil {
			return domain.BackendEvent{}, false
		}
		return domain.WidgetStateEvent(domain.WidgetState(*msg.State))
	case MsgError:
		return domain.BackendEvent{Kind: domain.BackendEventFailed, Err: errors.New(msg.Error)}, true
	default:
		s.logger.Debug("unknown screen event", slog.String("type", string(msg.Type)))
		return domain.BackendEvent{}, false
	}
}

// disconnected fails the loaded track when its screen goes away.
func (s *Screen) disconnected(c *conn) {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return
	}
	listener := s.listener
	s.conn = nil
	s.trackID = ""
	s.listener = nil
	s.mu.Unlock()

	if listener != nil {
		listener(domain.BackendEvent{Kind: domain.BackendEventFailed, Err: domain.ErrNoScreen})
	}
}

func (s *Screen) loaded() (*conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, domain.ErrNoSource
	}
	return s.conn, nil
}

// Clear unloads the screen's source.
func (s *Screen) Clear() error {
	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.trackID = ""
	s.listener = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.post(Message{Type: MsgClear}); err != nil && !errors.Is(err, domain.ErrNoScreen) {
		return err
	}
	return nil
}

// Close clears the screen. It must not be used afterwards.
func (s *Screen) Close() error {
	err := s.Clear()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Screen) command(op string, msg Message) error {
	c, err := s.loaded()
	if err != nil {
		return err
	}
	if err := c.post(msg); err != nil {
		return domain.NewBackendError(op, s.kind, "", "screen unavailable", err)
	}
	return nil
}

// Play resumes playback on the screen.
func (s *Screen) Play() error {
	return s.command("play", Message{Type: MsgPlay})
}

// Pause pauses playback on the screen. Pausing without a source is a no-op.
func (s *Screen) Pause() error {
	if _, err := s.loaded(); err != nil {
		return nil
	}
	return s.command("pause", Message{Type: MsgPause})
}

// Seek moves the position on the screen.
func (s *Screen) Seek(position time.Duration) error {
	return s.command("seek", Message{Type: MsgSeek, Position: seconds(position)})
}

// SetVolume sets the volume; it is also applied on the next load.
func (s *Screen) SetVolume(volume float64) error {
	s.mu.Lock()
	s.volume = max(0, min(volume, 1))
	msg := Message{Type: MsgVolume, Volume: s.volume, Muted: s.muted}
	s.mu.Unlock()
	return s.applyVolume(msg)
}

// SetMuted mutes or unmutes; it is also applied on the next load.
func (s *Screen) SetMuted(muted bool) error {
	s.mu.Lock()
	s.muted = muted
	msg := Message{Type: MsgVolume, Volume: s.volume, Muted: s.muted}
	s.mu.Unlock()
	return s.applyVolume(msg)
}

func (s *Screen) applyVolume(msg Message) error {
	if _, err := s.loaded(); err != nil {
		return nil
	}
	return s.command("volume", msg)
}

// PushesClock reports whether the screen reports its clock by itself. The
// widget only answers clock requests.
func (s *Screen) PushesClock() bool {
	return s.kind != domain.BackendEmbeddedWidget
}

// Clock asks the screen for the position and duration.
func (s *Screen) Clock(ctx context.Context) (time.Duration, time.Duration, error) {
	c, err := s.loaded()
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.request(ctx, Message{Type: MsgClock})
	if err != nil {
		return 0, 0, err
	}
	if resp.Error != "" {
		return 0, 0, domain.NewBackendError("clock", s.kind, "", resp.Error, nil)
	}
	return duration(resp.Position), duration(resp.Duration), nil
}

var _ ports.MediaBackend = (*Screen)(nil)
