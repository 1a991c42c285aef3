// Package progress serves a small WebSocket feed of simulation
// progress: it broadcasts this process's own rank/phase boundaries so a
// long run over a CAIDA-scale graph can be watched from a browser or a
// WebSocket client.
package progress

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Frame is one progress notification.
type Frame struct {
	Phase         string `json:"phase"`
	Rank          int    `json:"rank"`
	ASesProcessed int    `json:"ases_processed"`
}

// Broadcaster fans Publish calls out to every connected WebSocket
// client, dropping frames for clients that fall behind rather than
// blocking the simulation loop.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Frame
}

// NewBroadcaster creates a Broadcaster and starts an HTTP server on
// addr serving the WebSocket feed at "/progress".
func NewBroadcaster(addr string) (*Broadcaster, error) {
	b := &Broadcaster{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan Frame),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/progress", b.handleConn)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			log.Printf("progress: server stopped: %v", err)
		}
	}()

	log.Printf("progress: serving ws://%s/progress", addr)
	return b, nil
}

func (b *Broadcaster) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("progress: upgrade failed: %v", err)
		return
	}

	ch := make(chan Frame, 64)
	b.mu.Lock()
	b.clients[conn] = ch
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.clients, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for frame := range ch {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}()
}

// Publish satisfies internal/sim.ProgressSink: it fans frame out to
// every currently connected client, non-blocking.
func (b *Broadcaster) Publish(phase string, rank int, asesProcessed int) {
	frame := Frame{Phase: phase, Rank: rank, ASesProcessed: asesProcessed}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, ch := range b.clients {
		select {
		case ch <- frame:
		default:
			log.Printf("progress: client %s buffer full, dropping frame", conn.RemoteAddr())
		}
	}
}

// Close disconnects every currently connected client. The HTTP server
// keeps listening, so a client that connects afterwards still receives
// later Publish frames.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, ch := range b.clients {
		close(ch)
		conn.Close()
		delete(b.clients, conn)
	}
}

// MarshalFrame is exposed for tests that need to check wire format
// without standing up a real connection.
func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
