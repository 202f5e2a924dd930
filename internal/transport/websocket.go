// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"polysynth/internal/control"
	"polysynth/internal/log"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 256
	writeWait       = time.Second
)

// WebSocketServer is both a control surface and a Transport. Clients send
// JSON control messages that are forwarded to the synth's queue, and
// receive every frame passed to Send.
type WebSocketServer struct {
	addr      string
	sender    control.Sender
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener

	rejected atomic.Uint64
}

// NewWebSocketServer creates a server for addr. Control messages go to
// sender. Nothing listens until Start.
func NewWebSocketServer(addr string, sender control.Sender) *WebSocketServer {
	s := &WebSocketServer{
		addr:   addr,
		sender: sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local control surface, any page may connect.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastBuffer),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background. Bind errors are
// returned here rather than logged from a goroutine.
func (s *WebSocketServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		log.Infof("WebSocketServer: Listening on ws://%s/ws", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketServer: Server error: %v", err)
		}
	}()
	go s.handleBroadcasts()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *WebSocketServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Clients returns the number of connected clients.
func (s *WebSocketServer) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Rejected returns the number of client frames that were not valid
// control messages.
func (s *WebSocketServer) Rejected() uint64 { return s.rejected.Load() }

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketServer: Upgrade error: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()
	log.Infof("WebSocketServer: Client %s connected, total: %d", conn.RemoteAddr(), total)

	go s.readControl(conn)
}

// readControl forwards client frames to the control queue until the
// connection fails.
func (s *WebSocketServer) readControl(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var m control.Message
		if err := json.Unmarshal(data, &m); err != nil {
			s.rejected.Add(1)
			log.Debugf("WebSocketServer: Rejected frame from %s: %v", conn.RemoteAddr(), err)
			continue
		}
		if !s.sender.Send(m) {
			log.Debugf("WebSocketServer: Control queue full, dropped %v", m)
		}
	}
}

func (s *WebSocketServer) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	total := len(s.clients)
	s.clientsMu.Unlock()

	conn.Close()
	if ok {
		log.Infof("WebSocketServer: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (s *WebSocketServer) handleBroadcasts() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					log.Debugf("WebSocketServer: Error sending to client: %v", err)
					client.Close()
					delete(s.clients, client)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. Frames are dropped when the broadcast
// buffer is full or the server is closed.
func (s *WebSocketServer) Send(data any) error {
	select {
	case <-s.done:
		return nil
	case s.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (s *WebSocketServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		log.Infof("WebSocketServer: Closing server")
		close(s.done)

		s.clientsMu.Lock()
		for client := range s.clients {
			client.Close()
		}
		s.clients = make(map[*websocket.Conn]bool)
		s.clientsMu.Unlock()

		err = s.server.Close()
	})
	return err
}

// Ensure WebSocketServer satisfies the interface
var _ Transport = (*WebSocketServer)(nil)
