// internal/handlers/game_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameServer holds the shared hub and the settings every connection needs.
type GameServer struct {
	Hub    *lobby.Hub
	Config config.Config
	Logger *logrus.Logger
}

func NewGameServer(cfg config.Config, hub *lobby.Hub, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = hub.Logger()
	}
	return &GameServer{Hub: hub, Config: cfg, Logger: logger}
}

// Routes mounts the websocket endpoint, the room listing and a /ping probe.
func (gs *GameServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   gs.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/ws", gs.WSHandler())
	r.With(middleware.LogMiddleware(gs.Logger)).Get("/rooms", gs.RoomsHandler())
	return r
}
