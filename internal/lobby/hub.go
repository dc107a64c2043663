// internal/lobby/hub.go
package lobby

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// Options sizes the hub.
type Options struct {
	MaxRooms        int
	MaxPlayers      int
	MaxRoomCapacity int
	HouseRules      game.HouseRules
}

// Hub ties the player directory, the session registry and the room directory
// together. Mu serialises every handler invocation and every disconnect, so no
// handler ever observes a half-updated room or round.
type Hub struct {
	Mu sync.Mutex

	Players  *Players
	Registry *Registry
	Rooms    *Rooms
	Games    *game.GameStore

	MaxPlayers int

	logger *logrus.Logger
}

// NewHub builds an empty hub. sink may be nil, in which case finished rounds
// are only logged.
func NewHub(opts Options, sink RoundSink, logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.HouseRules.DealCount == 0 {
		opts.HouseRules = game.DefaultHouseRules()
	}
	players := NewPlayers()
	registry := NewRegistry()
	games := game.NewGameStore()
	return &Hub{
		Players:  players,
		Registry: registry,
		Games:    games,
		Rooms: &Rooms{
			byID:        make(map[uuid.UUID]*Room),
			maxRooms:    opts.MaxRooms,
			maxCapacity: opts.MaxRoomCapacity,
			rules:       opts.HouseRules,
			players:     players,
			registry:    registry,
			games:       games,
			sink:        sink,
			logger:      logger,
		},
		MaxPlayers: opts.MaxPlayers,
		logger:     logger,
	}
}

// Logger returns the hub's logger.
func (h *Hub) Logger() *logrus.Logger {
	return h.logger
}

// Disconnect removes a session entirely: it leaves its room (which may end or
// advance a round), its profile is deleted and its connection closed.
func (h *Hub) Disconnect(sid uuid.UUID) {
	h.Mu.Lock()
	h.Rooms.leaveRoom(sid, models.StateOffline)
	h.Players.Delete(sid)
	conn, ok := h.Registry.Remove(sid)
	h.Mu.Unlock()

	if ok {
		conn.Close()
	}
	h.logger.Debugf("Session %s disconnected", sid)
}
