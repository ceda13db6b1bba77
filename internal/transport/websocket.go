package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pez-globo/ventserver/internal/server"
)

const (
	clientBuffer = 64
	writeTimeout = time.Second
)

// Websocket connects frontend clients to the engine. Every binary message
// a client sends is submitted as a websocket receive; every frame written
// to the hub is broadcast to all clients.
type Websocket struct {
	upgrader websocket.Upgrader
	submit   Submitter
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebsocket creates a hub.
func NewWebsocket(submit Submitter, now func() time.Time, logger *slog.Logger) *Websocket {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Websocket{
		upgrader: websocket.Upgrader{
			// The frontend is served from the same device but not
			// necessarily the same origin.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		submit:  submit,
		now:     now,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Handle upgrades the request and serves the client until it disconnects.
func (w *Websocket) Handle(c echo.Context) error {
	conn, err := w.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	w.register(client)
	defer w.unregister(client)

	go w.writeLoop(client)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Warn("websocket read failed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return nil
		}
		if kind != websocket.BinaryMessage {
			w.logger.Debug("ignored non-binary websocket message", "type", kind)
			continue
		}
		if !w.submit.Submit(server.MakeWebsocketReceive(data, w.now())) {
			w.logger.Warn("dropped websocket message: queue full")
		}
	}
}

func (w *Websocket) writeLoop(client *wsClient) {
	defer client.conn.Close()
	for frame := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			w.logger.Warn("websocket write failed", "remote", client.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
	client.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (w *Websocket) register(client *wsClient) {
	w.mu.Lock()
	w.clients[client] = struct{}{}
	n := len(w.clients)
	w.mu.Unlock()
	w.logger.Info("frontend client connected", "remote", client.conn.RemoteAddr().String(), "clients", n)
}

func (w *Websocket) unregister(client *wsClient) {
	w.mu.Lock()
	if _, ok := w.clients[client]; ok {
		delete(w.clients, client)
		close(client.send)
	}
	n := len(w.clients)
	w.mu.Unlock()
	w.logger.Info("frontend client disconnected", "remote", client.conn.RemoteAddr().String(), "clients", n)
}

// WriteFrame broadcasts frame. A client whose buffer is full misses the
// frame; synchronization resends state on reconnect.
func (w *Websocket) WriteFrame(_ context.Context, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		select {
		case client.send <- frame:
		default:
			w.logger.Warn("dropped websocket frame: client too slow", "remote", client.conn.RemoteAddr().String())
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (w *Websocket) Clients() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// Close disconnects every client.
func (w *Websocket) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		delete(w.clients, client)
		close(client.send)
	}
}
