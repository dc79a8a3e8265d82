package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nuveplayer/nuve/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// conn is one connected screen.
type conn struct {
	hub    *Hub
	kind   domain.BackendKind
	ws     *websocket.Conn
	logger *slog.Logger
	send   chan []byte

	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Message
}

func newConn(hub *Hub, kind domain.BackendKind, ws *websocket.Conn) *conn {
	return &conn{
		hub:     hub,
		kind:    kind,
		ws:      ws,
		logger:  hub.logger.With(slog.String("screen", kind.String())),
		send:    make(chan []byte, sendBuffer),
		ready:   make(chan struct{}),
		closed:  make(chan struct{}),
		pending: make(map[uint64]chan Message),
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// readPump reads screen messages until the connection fails.
func (c *conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("screen read error", slog.Any("error", err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid screen message", slog.Any("error", err))
			continue
		}

		switch {
		case msg.Type == MsgHello:
			c.readyOnce.Do(func() { close(c.ready) })
		case msg.ID != 0:
			c.resolve(msg)
		default:
			c.hub.dispatch(c, msg)
		}
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// post queues msg without waiting for an answer.
func (c *conn) post(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.closed:
		return domain.ErrNoScreen
	}
}

// request sends msg with a fresh ID and waits for the screen's answer.
func (c *conn) request(ctx context.Context, msg Message) (Message, error) {
	reply := make(chan Message, 1)

	c.mu.Lock()
	c.nextID++
	msg.ID = c.nextID
	c.pending[msg.ID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := c.post(msg); err != nil {
		return Message{}, err
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-c.closed:
		return Message{}, domain.ErrNoScreen
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *conn) resolve(msg Message) {
	c.mu.Lock()
	reply, ok := c.pending[msg.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("dropping late answer", slog.Uint64("id", msg.ID))
		return
	}
	select {
	case reply <- msg:
	default:
	}
}
