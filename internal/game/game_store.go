package game

import (
	"sync"

	"github.com/google/uuid"
)

// GameStore indexes running rounds by their room so that a request can find
// its round without walking the room directory.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*UnoGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*UnoGame),
	}
}

// AddGame registers g under its room, replacing any previous round there.
func (s *GameStore) AddGame(g *UnoGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.RoomID] = g
}

func (s *GameStore) GetGame(roomID uuid.UUID) (*UnoGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[roomID]
	return g, exists
}

func (s *GameStore) DeleteGame(roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, roomID)
}

// Count returns the number of registered rounds.
func (s *GameStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}
