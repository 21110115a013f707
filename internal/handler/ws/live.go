package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ChochScan/internal/domain/models"
	dsvc "ChochScan/internal/domain/service"
	"ChochScan/internal/service/metrics"
	applogger "ChochScan/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	clientBuffer   = 16
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard is served from another origin in dev.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHub broadcasts confirmed signals to connected dashboard clients.
// Slow clients get dropped rather than backpressuring the scanner.
type LiveHub struct {
	l *applogger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewLiveHub(l *applogger.Logger) *LiveHub {
	metrics.Register()
	return &LiveHub{l: l, clients: make(map[*client]struct{})}
}

// OnSignal implements the in-process subscriber: one JSON frame per signal.
func (h *LiveHub) OnSignal(s models.Signal) {
	b, err := json.Marshal(map[string]interface{}{
		"symbol":      s.Symbol,
		"timeframe":   s.Timeframe,
		"direction":   string(s.Direction),
		"group":       string(s.Group),
		"price":       s.Price,
		"signal_time": s.SignalTime.UTC(),
	})
	if err != nil {
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.dropLocked(c)
		}
	}
	h.mu.Unlock()
}

// Handler upgrades a request into a live feed connection.
func (h *LiveHub) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			h.l.Warn("live feed upgrade failed", applogger.Error(err))
			return nil
		}
		cl := &client{conn: conn, send: make(chan []byte, clientBuffer)}

		h.mu.Lock()
		h.clients[cl] = struct{}{}
		n := len(h.clients)
		h.mu.Unlock()
		metrics.LiveFeedClients.Set(float64(n))
		h.l.Debug("live feed client connected", applogger.Int("clients", n))

		go h.writeLoop(cl)
		go h.readLoop(cl)
		return nil
	}
}

// Close disconnects all clients.
func (h *LiveHub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
}

func (h *LiveHub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop drains client frames so pong handling works and dead peers
// are noticed.
func (h *LiveHub) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *LiveHub) remove(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	n := len(h.clients)
	h.mu.Unlock()
	metrics.LiveFeedClients.Set(float64(n))
}

func (h *LiveHub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

var _ dsvc.SignalSubscriber = (*LiveHub)(nil)
