package devsim

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// hub fans set responses out to connected push listeners
type hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// broadcast writes body to every listener, dropping the ones that fail.
// Holding the lock serializes writes per connection.
func (h *hub) broadcast(body string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
			h.logger.Warn().Err(err).Msg("push write failed")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
