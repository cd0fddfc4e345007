package web

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"dlarsson/keypadd/config"
	"dlarsson/keypadd/session"
	"dlarsson/keypadd/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is served locally
	},
}

// Server is the dashboard backend: REST for the mapping editor and device
// picker, WebSocket for the live event stream.
type Server struct {
	session *session.Controller
	db      *storage.DB // nil when history is disabled
	cfg     *config.Config
	port    int
	hub     *Hub
}

// NewServer creates a new web server
func NewServer(sess *session.Controller, db *storage.DB, cfg *config.Config) *Server {
	hub := NewHub()
	go hub.Run()

	return &Server{
		session: sess,
		db:      db,
		cfg:     cfg,
		port:    cfg.Web.Port,
		hub:     hub,
	}
}

// Start starts the web server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/api/profile/save", s.handleProfileSave)
	mux.HandleFunc("/api/profile/defaults", s.handleDefaults)
	mux.HandleFunc("/api/mapping", s.handleMapping)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/listener/start", s.handleListenerStart)
	mux.HandleFunc("/api/listener/stop", s.handleListenerStop)
	mux.HandleFunc("/api/record", s.handleRecord)
	mux.HandleFunc("/api/test", s.handleTest)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("Starting web server", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))

	return http.ListenAndServe(addr, mux)
}

// BroadcastEvent forwards a session event to all connected dashboards.
func (s *Server) BroadcastEvent(ev session.Event) {
	s.hub.BroadcastMessage(Message{
		Type: ev.Type.String(),
		Data: EventMessage{
			Code:    ev.Code,
			Message: ev.Message,
		},
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}
