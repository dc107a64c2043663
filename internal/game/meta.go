package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// GameMeta is a partial view of a round pushed to one player. Only the fields
// that changed are set; the client merges them into its own copy.
type GameMeta struct {
	Turn            *string              `json:"turn,omitempty"`
	Clockwise       *bool                `json:"clockwise,omitempty"`
	Color           *models.Color        `json:"color,omitempty"`
	Plus            *int                 `json:"plus,omitempty"`
	CardNum         *int                 `json:"cardNum,omitempty"`
	GameStatus      *models.GameStatus   `json:"gameStatus,omitempty"`
	LastCard        *models.Card         `json:"lastCard,omitempty"`
	PlayersCardsNum map[uuid.UUID]int    `json:"playersCardsNum,omitempty"`
	PlayerState     map[uuid.UUID]string `json:"playerState,omitempty"`
	PlayerPoint     map[uuid.UUID]int    `json:"playerPoint,omitempty"`
	Cards           *[]models.Card       `json:"cards,omitempty"`
	Winner          *string              `json:"winner,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

func (g *UnoGame) turnString() string {
	if !g.Alive {
		return ""
	}
	return g.TurnPlayerID.String()
}

func (g *UnoGame) status() models.GameStatus {
	if g.Alive {
		return models.StatusInGame
	}
	return models.StatusEnded
}

// MetaFor is the full view of the round as seen by playerID: the shared table
// state plus that player's own hand. It is sent when a round starts.
func (g *UnoGame) MetaFor(playerID uuid.UUID) GameMeta {
	meta := GameMeta{
		Turn:            ptr(g.turnString()),
		Clockwise:       ptr(g.Clockwise),
		Color:           ptr(g.ActiveColor),
		Plus:            ptr(g.PendingDraw),
		CardNum:         ptr(g.CardNum()),
		GameStatus:      ptr(g.status()),
		LastCard:        g.LastCard,
		PlayersCardsNum: g.HandSizes(),
	}
	if g.HasSeat(playerID) {
		meta.Cards = ptr(g.Hand(playerID))
	}
	if !g.Alive && g.Winner != uuid.Nil {
		meta.Winner = ptr(g.Winner.String())
	}
	return meta
}

// MoveMeta is the delta sent to recipient after actor played or drew. The actor
// also receives their new hand.
func (g *UnoGame) MoveMeta(actor, recipient uuid.UUID) GameMeta {
	meta := GameMeta{
		Turn:            ptr(g.turnString()),
		Clockwise:       ptr(g.Clockwise),
		Color:           ptr(g.ActiveColor),
		Plus:            ptr(g.PendingDraw),
		CardNum:         ptr(g.CardNum()),
		LastCard:        g.LastCard,
		PlayersCardsNum: map[uuid.UUID]int{actor: len(g.hands[actor])},
	}
	if recipient == actor {
		meta.Cards = ptr(g.Hand(actor))
	}
	if !g.Alive {
		meta.GameStatus = ptr(models.StatusEnded)
		meta.Winner = ptr(g.Winner.String())
	}
	return meta
}
