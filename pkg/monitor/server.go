// Package monitor broadcasts scheduler phase-transition telemetry to
// connected WebSocket clients: one send channel per client, with a
// drop-on-full backpressure policy so a slow consumer can never stall
// the tick loop.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Envelope is the JSON frame broadcast to every connected client.
type Envelope struct {
	Type    string      `json:"type"`
	Time    int         `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

// Server is a kernel.Observer that mirrors tick/exchange/snapshot/
// finish events over WebSocket. A slow or disconnected client is
// dropped rather than allowed to backpressure the tick loop.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer returns a Server with no connected clients.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades r to a WebSocket connection and registers it as a
// broadcast recipient.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("monitor: websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.dropClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.dropClient(c)
			return
		}
	}
}

func (s *Server) dropClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

// Broadcast enqueues env onto every connected client's send channel,
// dropping it for any client whose buffer is full.
func (s *Server) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logrus.WithError(err).Warn("monitor: failed to marshal envelope")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop rather than block the broadcaster.
		}
	}
}

// OnTick implements kernel.Observer.
func (s *Server) OnTick(t int) { s.Broadcast(Envelope{Type: "tick", Time: t}) }

// OnExchange implements kernel.Observer.
func (s *Server) OnExchange(t int, kind string, matches int) {
	s.Broadcast(Envelope{Type: "exchange", Time: t, Payload: map[string]interface{}{
		"kind": kind, "matches": matches,
	}})
}

// OnTock implements kernel.Observer.
func (s *Server) OnTock(t int) { s.Broadcast(Envelope{Type: "tock", Time: t}) }

// OnSnapshot implements kernel.Observer.
func (s *Server) OnSnapshot(t int) { s.Broadcast(Envelope{Type: "snapshot", Time: t}) }

// OnFinish implements kernel.Observer.
func (s *Server) OnFinish(earlyTerm bool, endTime int) {
	s.Broadcast(Envelope{Type: "finish", Time: endTime, Payload: map[string]interface{}{
		"early_term": earlyTerm,
	}})
}
