package app

import (
	"log"
	"net/http"

	"doc-editor/pkg/config"
	"doc-editor/pkg/handlers"
	"doc-editor/pkg/room"

	"github.com/gorilla/mux"
)

// Server represents the application server
type Server struct {
	router      *mux.Router
	roomManager *room.Manager
	handlers    *handlers.Handlers
	config      *config.Config
}

// NewServer creates a new server instance whose rooms get sinks from newSink
func NewServer(cfg *config.Config, newSink room.SinkFactory) *Server {
	roomManager := room.NewManager(newSink)

	// Initialize handlers
	h := handlers.NewHandlers(roomManager)

	// Setup routes
	r := mux.NewRouter()

	// WebSocket endpoint for live rendering
	r.HandleFunc("/ws/{roomId}", h.HandleWebSocket)

	// REST API endpoints
	r.HandleFunc("/api/rooms", h.CreateRoom).Methods("POST")
	r.HandleFunc("/api/rooms", h.ListRooms).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}", h.DeleteRoom).Methods("DELETE")
	r.HandleFunc("/api/rooms/{roomId}/elements", h.AddElement).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/script", h.ApplyScript).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/script", h.GetScript).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/render", h.RenderDocument).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/save", h.SaveDocument).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/revisions", h.ListRevisions).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/users", h.GetRoomUsers).Methods("GET")

	return &Server{
		router:      r,
		roomManager: roomManager,
		handlers:    h,
		config:      cfg,
	}
}

// Handler returns the router wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Start starts the server
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = s.config.GetServerAddr()
	}
	log.Printf("Starting document editor server on %s", addr)
	// The CORS layer wraps the router so preflight requests are answered
	// before mux does method-based matching (which would return 405).
	return http.ListenAndServe(addr, s.Handler())
}

// corsMiddleware handles CORS headers and responds to preflight requests
// at the outer layer so they don't get rejected by method-restricted routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// Reflect the origin for stricter CORS
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		// Echo requested headers; otherwise allow common headers
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		w.Header().Set("Access-Control-Max-Age", "600")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close stops every room
func (s *Server) Close() error {
	s.roomManager.Close()
	return nil
}
