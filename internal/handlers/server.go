// internal/handlers/server.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jason-s-yu/cambia-lobby/internal/lobby"
	"github.com/jason-s-yu/cambia-lobby/internal/middleware"
	"github.com/sirupsen/logrus"
)

// LobbyServer is the HTTP face of the lobby registry.
type LobbyServer struct {
	Registry    *lobby.Registry
	Logger      logrus.FieldLogger
	PollTimeout time.Duration
}

// NewLobbyServer wires reg behind HTTP handlers. Parked polls are answered
// with a heartbeat after pollTimeout.
func NewLobbyServer(reg *lobby.Registry, logger logrus.FieldLogger, pollTimeout time.Duration) *LobbyServer {
	return &LobbyServer{
		Registry:    reg,
		Logger:      logger,
		PollTimeout: pollTimeout,
	}
}

// Routes returns the server's handler tree with request logging applied.
func (s *LobbyServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", PingHandler)

	// user endpoints
	mux.HandleFunc("POST /user/create", CreateUserHandler(s))
	mux.HandleFunc("POST /user/login", LoginHandler(s))
	mux.HandleFunc("POST /user/logout", s.requireSession(s.logout))
	mux.HandleFunc("GET /user/profile", s.requireSession(s.getProfile))
	mux.HandleFunc("PUT /user/profile", s.requireSession(s.putProfile))

	// lobby endpoints
	mux.HandleFunc("GET /lobby/games", s.requireSession(s.listGames))
	mux.HandleFunc("GET /lobby/users", s.requireSession(s.listUsers))
	mux.HandleFunc("GET /lobby/servers", s.requireSession(s.listServers))
	mux.HandleFunc("POST /lobby/game/create", s.requireSession(s.createGame))
	mux.HandleFunc("POST /lobby/game/join", s.requireSession(s.joinGame))
	mux.HandleFunc("POST /lobby/game/leave", s.requireSession(s.leaveGame))
	mux.HandleFunc("POST /lobby/game/remove", s.requireSession(s.removeGame))
	mux.HandleFunc("POST /lobby/game/start", s.requireSession(s.startGame))
	mux.HandleFunc("POST /lobby/game/bot", s.requireSession(s.addBot))
	mux.HandleFunc("POST /lobby/chat", s.requireSession(s.chat))

	// deferred delivery
	mux.HandleFunc("GET /lobby/poll", s.requireSession(s.poll))
	mux.HandleFunc("GET /lobby/ws", LobbyWSHandler(s))

	return middleware.LogMiddleware(s.Logger)(mux)
}

// PingHandler answers liveness probes.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"type": "pong"})
}
