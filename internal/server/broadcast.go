package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster pushes each cycle's snapshot to every connected websocket
// client. Slow or broken clients are dropped rather than blocking the engine.
type Broadcaster struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan any
	closed  bool
}

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger:  logger.Named("ws"),
		clients: make(map[*websocket.Conn]chan any),
	}
}

// Handle upgrades the request and registers the client until it disconnects.
func (b *Broadcaster) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan any, 4)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[conn] = send
	b.mu.Unlock()
	b.logger.Debug("Websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	go b.writeLoop(conn, send)

	// Drain incoming frames; the protocol is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.drop(conn)
}

func (b *Broadcaster) writeLoop(conn *websocket.Conn, send chan any) {
	for payload := range send {
		if err := conn.WriteJSON(payload); err != nil {
			b.drop(conn)
			return
		}
	}
	conn.Close()
}

// Publish queues payload for every client. A client whose buffer is full
// misses this update instead of stalling the caller.
func (b *Broadcaster) Publish(payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, send := range b.clients {
		select {
		case send <- payload:
		default:
		}
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	send, ok := b.clients[conn]
	if ok {
		delete(b.clients, conn)
		close(send)
	}
	b.mu.Unlock()
	conn.Close()
}

// Close disconnects all clients and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for conn, send := range b.clients {
		close(send)
		delete(b.clients, conn)
	}
}
