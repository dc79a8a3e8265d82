package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/logger"
)

const waitFor = 2 * time.Second

var (
	videoTrack = domain.Track{
		ID:          "demo-3",
		MediaType:   domain.MediaVideo,
		VideoPoster: "https://example.com/poster.jpg",
		Sources:     map[domain.StreamQuality]string{domain.QualityHigh: "https://example.com/flower.mp4"},
	}
	widgetTrack = domain.Track{
		ID:             "yt-abc",
		MediaType:      domain.MediaVideo,
		Kind:           domain.SourceYouTube,
		YouTubeVideoID: "abc",
	}
)

// fakeScreen plays the part of the screen page.
type fakeScreen struct {
	ws   *websocket.Conn
	cmds chan Message
	done chan struct{}

	mu       sync.Mutex
	loadErr  string
	position float64
	length   float64
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(logger.NewTestLogger())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dialScreen(t *testing.T, srv *httptest.Server, path string, hello bool) *fakeScreen {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/screen/" + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	f := &fakeScreen{ws: ws, cmds: make(chan Message, 32), done: make(chan struct{})}
	go f.readLoop()
	t.Cleanup(f.close)
	if hello {
		f.send(t, Message{Type: MsgHello})
	}
	return f
}

func (f *fakeScreen) readLoop() {
	defer close(f.done)
	for {
		var msg Message
		if err := f.ws.ReadJSON(&msg); err != nil {
			return
		}
		f.mu.Lock()
		var reply *Message
		switch msg.Type {
		case MsgLoad:
			reply = &Message{Type: MsgAck, ID: msg.ID, Error: f.loadErr}
		case MsgClock:
			reply = &Message{Type: MsgClock, ID: msg.ID, Position: f.position, Duration: f.length}
		}
		f.mu.Unlock()
		if reply != nil {
			_ = f.ws.WriteJSON(reply)
		}
		f.cmds <- msg
	}
}

func (f *fakeScreen) send(t *testing.T, msg Message) {
	t.Helper()
	require.NoError(t, f.ws.WriteJSON(msg))
}

func (f *fakeScreen) next(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-f.cmds:
		return msg
	case <-time.After(waitFor):
		t.Fatal("no command received")
		return Message{}
	}
}

func (f *fakeScreen) close() {
	_ = f.ws.Close()
	<-f.done
}

type events chan domain.BackendEvent

func (e events) listen(event domain.BackendEvent) {
	e <- event
}

func (e events) next(t *testing.T) domain.BackendEvent {
	t.Helper()
	select {
	case event := <-e:
		return event
	case <-time.After(waitFor):
		t.Fatal("no backend event received")
		return domain.BackendEvent{}
	}
}

func TestHub_Routes(t *testing.T) {
	_, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/screen/")

	resp, err = http.Get(srv.URL + "/screen/radio")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScreen_LoadWaitsForReadyScreen(t *testing.T) {
	hub, srv := newTestHub(t)
	widget := hub.Widget()
	assert.Equal(t, domain.BackendEmbeddedWidget, widget.Kind())
	assert.False(t, widget.PushesClock())

	ev := make(events, 16)
	loaded := make(chan error, 1)
	go func() {
		loaded <- widget.Load(context.Background(), widgetTrack, "", ev.listen)
	}()

	screen := dialScreen(t, srv, "widget", false)
	select {
	case err := <-loaded:
		t.Fatalf("load returned before the screen was ready: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, hub.Connected(domain.BackendEmbeddedWidget))

	screen.send(t, Message{Type: MsgHello})
	select {
	case err := <-loaded:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("load did not complete")
	}
	assert.True(t, hub.Connected(domain.BackendEmbeddedWidget))

	load := screen.next(t)
	assert.Equal(t, MsgLoad, load.Type)
	assert.Equal(t, "abc", load.VideoID)
	assert.Equal(t, "yt-abc", load.TrackID)

	vol := screen.next(t)
	assert.Equal(t, MsgVolume, vol.Type)
	assert.Equal(t, 1.0, vol.Volume)

	// The next load does not wait again.
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, widget.Load(ctx, widgetTrack, "", ev.listen))
}

func TestScreen_Events(t *testing.T) {
	hub, srv := newTestHub(t)
	video := hub.Video()
	screen := dialScreen(t, srv, "video", true)

	ev := make(events, 16)
	require.NoError(t, video.Load(context.Background(), videoTrack, "https://example.com/flower.mp4", ev.listen))

	load := screen.next(t)
	assert.Equal(t, "https://example.com/flower.mp4", load.Source)
	assert.Equal(t, "https://example.com/poster.jpg", load.Poster)

	// Events of another track are dropped.
	screen.send(t, Message{Type: MsgReady, TrackID: "demo-1", Duration: 99})
	screen.send(t, Message{Type: MsgReady, TrackID: "demo-3", Duration: 12.5})
	event := ev.next(t)
	assert.Equal(t, domain.BackendEventReady, event.Kind)
	assert.Equal(t, 12500*time.Millisecond, event.Duration)

	screen.send(t, Message{Type: MsgClock, TrackID: "demo-3", Position: 3, Duration: 12.5})
	event = ev.next(t)
	assert.Equal(t, domain.BackendEventClock, event.Kind)
	assert.Equal(t, 3*time.Second, event.Position)

	screen.send(t, Message{Type: MsgPlaying, TrackID: "demo-3"})
	assert.Equal(t, domain.BackendEventPlaying, ev.next(t).Kind)

	ended := int(domain.WidgetEnded)
	screen.send(t, Message{Type: MsgState, TrackID: "demo-3", State: &ended})
	assert.Equal(t, domain.BackendEventEnded, ev.next(t).Kind)

	screen.send(t, Message{Type: MsgError, TrackID: "demo-3", Error: "media error"})
	event = ev.next(t)
	assert.Equal(t, domain.BackendEventFailed, event.Kind)
	assert.EqualError(t, event.Err, "media error")

	// Nothing is delivered after Clear.
	require.NoError(t, video.Clear())
	assert.Equal(t, MsgVolume, screen.next(t).Type)
	assert.Equal(t, MsgClear, screen.next(t).Type)
	screen.send(t, Message{Type: MsgPaused, TrackID: "demo-3"})
	select {
	case event := <-ev:
		t.Fatalf("unexpected event after clear: %v", event.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScreen_Transport(t *testing.T) {
	hub, srv := newTestHub(t)
	video := hub.Video()

	assert.ErrorIs(t, video.Play(), domain.ErrNoSource)
	assert.ErrorIs(t, video.Seek(time.Second), domain.ErrNoSource)
	assert.NoError(t, video.Pause())
	require.NoError(t, video.SetVolume(0.4))

	screen := dialScreen(t, srv, "video", true)
	require.NoError(t, video.Load(context.Background(), videoTrack, "https://example.com/flower.mp4", make(events, 16).listen))
	assert.Equal(t, MsgLoad, screen.next(t).Type)
	assert.InDelta(t, 0.4, screen.next(t).Volume, 1e-9)

	require.NoError(t, video.Play())
	require.NoError(t, video.Seek(1500*time.Millisecond))
	require.NoError(t, video.Pause())
	require.NoError(t, video.SetMuted(true))

	assert.Equal(t, MsgPlay, screen.next(t).Type)
	seek := screen.next(t)
	assert.Equal(t, MsgSeek, seek.Type)
	assert.InDelta(t, 1.5, seek.Position, 1e-9)
	assert.Equal(t, MsgPause, screen.next(t).Type)
	mute := screen.next(t)
	assert.Equal(t, MsgVolume, mute.Type)
	assert.True(t, mute.Muted)
}

func TestScreen_Clock(t *testing.T) {
	hub, srv := newTestHub(t)
	widget := hub.Widget()

	_, _, err := widget.Clock(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSource)

	screen := dialScreen(t, srv, "widget", true)
	screen.mu.Lock()
	screen.position, screen.length = 42, 180
	screen.mu.Unlock()

	require.NoError(t, widget.Load(context.Background(), widgetTrack, "", make(events, 16).listen))
	pos, dur, err := widget.Clock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, pos)
	assert.Equal(t, 3*time.Minute, dur)
}

func TestScreen_LoadErrors(t *testing.T) {
	hub, srv := newTestHub(t)

	err := hub.Widget().Load(context.Background(), videoTrack, "", make(events, 1).listen)
	assert.ErrorIs(t, err, domain.ErrNoSource)
	err = hub.Video().Load(context.Background(), videoTrack, "", make(events, 1).listen)
	assert.ErrorIs(t, err, domain.ErrNoSource)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = hub.Video().Load(ctx, videoTrack, "https://example.com/flower.mp4", make(events, 1).listen)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	screen := dialScreen(t, srv, "widget", true)
	screen.mu.Lock()
	screen.loadErr = "video unavailable"
	screen.mu.Unlock()

	err = hub.Widget().Load(context.Background(), widgetTrack, "", make(events, 1).listen)
	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "video unavailable", backendErr.Message)
	assert.ErrorIs(t, hub.Widget().Play(), domain.ErrNoSource)
}

func TestScreen_LoadWithoutScreenTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(logger.NewTestLogger(), WithScreenTimeout(20*time.Millisecond))
	defer hub.Close()

	loaded := make(chan error, 1)
	go func() {
		loaded <- hub.Widget().Load(context.Background(), widgetTrack, "", make(events, 1).listen)
	}()

	var err error
	select {
	case err = <-loaded:
	case <-time.After(waitFor):
		t.Fatal("load kept waiting for a screen")
	}
	assert.ErrorIs(t, err, domain.ErrNoScreen)
	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "no screen connected", backendErr.Message)
	assert.Equal(t, "yt-abc", backendErr.Source)
}

func TestScreen_DisconnectFailsLoadedTrack(t *testing.T) {
	hub, srv := newTestHub(t)
	widget := hub.Widget()
	screen := dialScreen(t, srv, "widget", true)

	ev := make(events, 16)
	require.NoError(t, widget.Load(context.Background(), widgetTrack, "", ev.listen))

	screen.close()
	event := ev.next(t)
	assert.Equal(t, domain.BackendEventFailed, event.Kind)
	assert.ErrorIs(t, event.Err, domain.ErrNoScreen)

	assert.Eventually(t, func() bool { return !hub.Connected(domain.BackendEmbeddedWidget) }, waitFor, 10*time.Millisecond)
	assert.ErrorIs(t, widget.Play(), domain.ErrNoSource)
}

func TestScreen_NewScreenReplacesOld(t *testing.T) {
	hub, srv := newTestHub(t)
	first := dialScreen(t, srv, "video", true)
	assert.Eventually(t, func() bool { return hub.Connected(domain.BackendNativeVideo) }, waitFor, 10*time.Millisecond)

	second := dialScreen(t, srv, "video", true)
	select {
	case <-first.done:
	case <-time.After(waitFor):
		t.Fatal("previous screen was not closed")
	}

	require.NoError(t, hub.Video().Load(context.Background(), videoTrack, "https://example.com/flower.mp4", make(events, 16).listen))
	assert.Equal(t, MsgLoad, second.next(t).Type)
}

func TestHub_CloseReleasesScreens(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(logger.NewTestLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	screen := dialScreen(t, srv, "video", true)
	require.NoError(t, hub.Video().Load(context.Background(), videoTrack, "https://example.com/flower.mp4", make(events, 16).listen))
	require.NoError(t, hub.Video().Close())

	hub.Close()
	select {
	case <-screen.done:
	case <-time.After(waitFor):
		t.Fatal("screen was not disconnected")
	}

	err := hub.Video().Load(context.Background(), videoTrack, "x.mp4", make(events, 1).listen)
	assert.ErrorIs(t, err, domain.ErrClosed)
	_, err = hub.wait(context.Background(), domain.BackendNativeVideo)
	assert.ErrorIs(t, err, domain.ErrClosed)
}
