// Package bridge drives the screen-rendered backends (native video and the
// embedded widget) over WebSocket.
//
// A screen is a page that renders media, usually a browser window opened on
// the bridge address. It connects to /screen/video or /screen/widget,
// announces itself with a hello once it can load media and then executes
// commands and reports media events. One screen per backend kind is
// connected at a time; a new connection replaces the previous one.
package bridge

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nuveplayer/nuve/internal/domain"
)

const (
	shutdownTimeout = 5 * time.Second

	// DefaultScreenTimeout bounds how long a load waits for a screen.
	DefaultScreenTimeout = 15 * time.Second
)

//go:embed screen.html
var screenPage []byte

// Hub accepts screen connections and routes their messages to the
// backends.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   *mux.Router

	mu      sync.Mutex
	conns   map[domain.BackendKind]*conn
	screens map[domain.BackendKind]*Screen
	changed chan struct{}
	closed  bool

	screenTimeout time.Duration

	wg sync.WaitGroup
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithScreenTimeout sets how long a load waits for a screen to connect
// before failing with domain.ErrNoScreen.
func WithScreenTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.screenTimeout = d
		}
	}
}

// NewHub creates a hub with a screen backend for each bridged kind.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger: logger.With(slog.String("component", "bridge")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Screens are local pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		router:  mux.NewRouter(),
		conns:   make(map[domain.BackendKind]*conn),
		screens: make(map[domain.BackendKind]*Screen),
		changed: make(chan struct{}),

		screenTimeout: DefaultScreenTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	for kind := range kindPaths {
		h.screens[kind] = newScreen(h, kind)
	}

	h.router.HandleFunc("/", h.handlePage).Methods(http.MethodGet)
	h.router.HandleFunc("/screen/{kind}", h.handleScreen).Methods(http.MethodGet)
	return h
}

// Video returns the native video backend.
func (h *Hub) Video() *Screen {
	return h.screens[domain.BackendNativeVideo]
}

// Widget returns the embedded widget backend.
func (h *Hub) Widget() *Screen {
	return h.screens[domain.BackendEmbeddedWidget]
}

// Handler returns the HTTP handler serving the screen page and sockets.
func (h *Hub) Handler() http.Handler {
	return h.router
}

func (h *Hub) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(screenPage)
}

func (h *Hub) handleScreen(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(mux.Vars(r)["kind"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("screen upgrade failed", slog.Any("error", err))
		return
	}

	c := newConn(h, kind, ws)
	if !h.register(c) {
		_ = ws.Close()
		return
	}
	c.logger.Info("screen connected", slog.String("remote", r.RemoteAddr))

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
		h.unregister(c)
	}()
}

// register makes c the screen of its kind, closing the previous one. The
// caller starts both pumps when it returns true.
func (h *Hub) register(c *conn) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.wg.Add(2)
	prev := h.conns[c.kind]
	h.conns[c.kind] = c
	h.notifyLocked()
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if h.conns[c.kind] == c {
		delete(h.conns, c.kind)
		h.notifyLocked()
	}
	screen := h.screens[c.kind]
	h.mu.Unlock()

	c.logger.Info("screen disconnected")
	screen.disconnected(c)
}

func (h *Hub) notifyLocked() {
	close(h.changed)
	h.changed = make(chan struct{})
}

// Connected reports whether a ready screen of kind is connected.
func (h *Hub) Connected(kind domain.BackendKind) bool {
	h.mu.Lock()
	c := h.conns[kind]
	h.mu.Unlock()
	if c == nil {
		return false
	}
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// wait blocks until a screen of kind is connected and ready. It gives up
// with domain.ErrNoScreen after the screen timeout.
func (h *Hub) wait(ctx context.Context, kind domain.BackendKind) (*conn, error) {
	timer := time.NewTimer(h.screenTimeout)
	defer timer.Stop()

	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, domain.ErrClosed
		}
		c, changed := h.conns[kind], h.changed
		h.mu.Unlock()

		if c == nil {
			select {
			case <-changed:
				continue
			case <-timer.C:
				return nil, domain.ErrNoScreen
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		select {
		case <-c.ready:
			return c, nil
		case <-changed:
		case <-timer.C:
			return nil, domain.ErrNoScreen
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// current returns the ready screen of kind without waiting.
func (h *Hub) current(kind domain.BackendKind) (*conn, bool) {
	h.mu.Lock()
	c := h.conns[kind]
	h.mu.Unlock()
	if c == nil {
		return nil, false
	}
	select {
	case <-c.ready:
		return c, true
	default:
		return nil, false
	}
}

func (h *Hub) dispatch(c *conn, msg Message) {
	h.mu.Lock()
	screen := h.screens[c.kind]
	h.mu.Unlock()
	screen.handle(c, msg)
}

// ListenAndServe serves screens on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("screen bridge listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Hijacked screen connections are not tracked by Shutdown.
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	h.logger.Info("screen bridge stopped")
	return nil
}

// Close disconnects every screen and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.wg.Wait()
		return
	}
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.notifyLocked()
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	h.wg.Wait()
}
