// internal/game/game.go
package game

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotEnoughPlayers = errors.New("a round needs at least two players")
	ErrGameOver         = errors.New("round is over")
	ErrUnknownPlayer    = errors.New("player has no hand in this round")
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrBadIndex         = errors.New("card index out of range")
	ErrColorRequired    = errors.New("wildcard requires a declared colour")
	ErrIllegalCard      = errors.New("card cannot be played on the current table")
	ErrDeckEmpty        = errors.New("draw pile is empty")
)

// OnGameEndFunc receives the summary of a finished round, e.g. to reopen the room.
type OnGameEndFunc func(record models.RoundRecord)

// UnoGame holds the state of one room's round. It is not safe for concurrent
// use; the owning room serialises every call.
type UnoGame struct {
	ID     uuid.UUID
	RoomID uuid.UUID

	HouseRules HouseRules

	// Deck is the draw pile; the top card is the last element.
	Deck []models.Card
	// Discard holds every played card in order; LastCard mirrors its top.
	Discard []models.Card

	// order is the seat list fixed at deal time. Departed seats stay in place
	// and are skipped, so Turn always indexes the same player.
	order    []uuid.UUID
	hands    map[uuid.UUID][]models.Card
	departed map[uuid.UUID]bool

	Turn         int
	TurnPlayerID uuid.UUID
	Clockwise    bool
	ActiveColor  models.Color
	PendingDraw  int
	LastCard     *models.Card

	Alive     bool
	Winner    uuid.UUID
	StartedAt time.Time

	// SendToPlayerFn pushes a GameMeta delta to a single player. If nil, nothing is sent.
	SendToPlayerFn func(playerID uuid.UUID, meta GameMeta)

	// OnGameEnd is invoked once when the round finishes.
	OnGameEnd OnGameEndFunc
}

// NewUnoGame shuffles a fresh deck and deals rules.DealCount cards to each
// player round-robin, in seat order. A nil rng uses a time-seeded source.
func NewUnoGame(roomID uuid.UUID, players []uuid.UUID, rules HouseRules, rng *rand.Rand) (*UnoGame, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if rules.DealCount <= 0 {
		rules.DealCount = DealCount
	}

	id, _ := uuid.NewRandom()
	g := &UnoGame{
		ID:          id,
		RoomID:      roomID,
		HouseRules:  rules,
		Deck:        Shuffle(NewDeck(), rng),
		order:       append([]uuid.UUID(nil), players...),
		hands:       make(map[uuid.UUID][]models.Card, len(players)),
		departed:    make(map[uuid.UUID]bool),
		Turn:        0,
		Clockwise:   true,
		ActiveColor: models.Wild,
		Alive:       true,
		StartedAt:   time.Now(),
	}
	for _, pid := range g.order {
		g.hands[pid] = make([]models.Card, 0, rules.DealCount)
	}
	g.deal()
	g.TurnPlayerID = g.order[0]

	log.Debugf("Game %s: dealt %d cards to %d players in room %s, %d left in deck.",
		g.ID, rules.DealCount, len(players), roomID, len(g.Deck))
	return g, nil
}

func (g *UnoGame) deal() {
	n := len(g.order)
	total := g.HouseRules.DealCount * n
	for i := 0; i < total && len(g.Deck) > 0; i++ {
		top := len(g.Deck) - 1
		pid := g.order[i%n]
		g.hands[pid] = append(g.hands[pid], g.Deck[top])
		g.Deck = g.Deck[:top]
	}
}

// PlayCard plays the card at index from the player's hand. declared is the
// colour chosen for a wildcard and is ignored for coloured cards. A failed
// play returns an error and leaves the state untouched.
func (g *UnoGame) PlayCard(playerID uuid.UUID, index int, declared *models.Color) error {
	if !g.Alive {
		return ErrGameOver
	}
	hand, ok := g.hands[playerID]
	if !ok || g.departed[playerID] {
		return ErrUnknownPlayer
	}
	if playerID != g.TurnPlayerID {
		return ErrNotYourTurn
	}
	if index < 0 || index >= len(hand) {
		return ErrBadIndex
	}
	card := hand[index]
	if card.IsWild() && (declared == nil || !declared.IsReal()) {
		return ErrColorRequired
	}
	if !card.Legal(g.LastCard, g.ActiveColor) {
		return ErrIllegalCard
	}

	remaining := make([]models.Card, 0, len(hand)-1)
	remaining = append(remaining, hand[:index]...)
	remaining = append(remaining, hand[index+1:]...)
	g.hands[playerID] = remaining

	switch card.Kind {
	case models.Reverse:
		g.Clockwise = !g.Clockwise
	case models.DrawTwo:
		g.PendingDraw += 2
	case models.WildDrawFour:
		g.PendingDraw += 4
	}
	if card.IsWild() {
		g.ActiveColor = *declared
	} else {
		g.ActiveColor = card.Color
	}
	g.Discard = append(g.Discard, card)
	played := card
	g.LastCard = &played

	if len(remaining) == 0 {
		g.GameOver(playerID, models.ReasonEmptyHand)
		return nil
	}

	step := 1
	if card.Kind == models.Skip && g.HouseRules.SkipSkipsNext {
		step = 2
	}
	g.advanceTurn(step)
	return nil
}

// DrawCard moves max(1, PendingDraw) cards from the deck into the player's hand,
// clears the penalty and passes the turn. It returns the drawn cards.
// Emptying the deck ends the round.
func (g *UnoGame) DrawCard(playerID uuid.UUID) ([]models.Card, error) {
	if !g.Alive {
		return nil, ErrGameOver
	}
	if _, ok := g.hands[playerID]; !ok || g.departed[playerID] {
		return nil, ErrUnknownPlayer
	}
	if playerID != g.TurnPlayerID {
		return nil, ErrNotYourTurn
	}
	if len(g.Deck) == 0 {
		return nil, ErrDeckEmpty
	}

	n := max(1, g.PendingDraw)
	if n > len(g.Deck) {
		n = len(g.Deck)
	}
	cut := len(g.Deck) - n
	drawn := append([]models.Card(nil), g.Deck[cut:]...)
	g.Deck = g.Deck[:cut]
	g.hands[playerID] = append(g.hands[playerID], drawn...)
	g.PendingDraw = 0

	if len(g.Deck) == 0 {
		log.Infof("Game %s: draw pile exhausted, ending round.", g.ID)
		g.GameOver(uuid.Nil, models.ReasonDeckExhausted)
		return drawn, nil
	}
	g.advanceTurn(1)
	return drawn, nil
}

// advanceTurn moves the turn pointer step seats in the current direction.
// Each step lands on the next seat that has not departed.
func (g *UnoGame) advanceTurn(step int) {
	if len(g.order) == 0 || g.LiveCount() == 0 {
		return
	}
	for i := 0; i < step; i++ {
		g.advanceOne()
	}
}

func (g *UnoGame) advanceOne() {
	n := len(g.order)
	dir := 1
	if !g.Clockwise {
		dir = -1
	}
	next := g.Turn
	for i := 0; i < n; i++ {
		next = ((next+dir)%n + n) % n
		if !g.departed[g.order[next]] {
			break
		}
	}
	g.Turn = next
	g.TurnPlayerID = g.order[next]
}

// OnPlayerDeparture flags the player as gone. Their seat keeps its index but is
// skipped from now on. While the round is alive the remaining players are told
// the player's state (leave or offline) and, if the player held the turn, who
// holds it now.
func (g *UnoGame) OnPlayerDeparture(playerID uuid.UUID, state models.UserState) {
	if _, ok := g.hands[playerID]; !ok || g.departed[playerID] {
		return
	}
	g.departed[playerID] = true
	if !g.Alive {
		return
	}

	meta := GameMeta{PlayerState: map[uuid.UUID]string{playerID: state.String()}}
	if g.TurnPlayerID == playerID {
		g.advanceTurn(1)
		if !g.departed[g.TurnPlayerID] {
			meta.Turn = ptr(g.TurnPlayerID.String())
		}
	}
	for _, pid := range g.order {
		if g.departed[pid] {
			continue
		}
		g.sendToPlayer(pid, meta)
	}
}

// GameOver ends the round. Without an explicit winner the non-departed player
// holding the lowest score wins. Every non-departed player receives the final
// scores, then OnGameEnd runs. Calling it again returns the first winner.
func (g *UnoGame) GameOver(winner uuid.UUID, reason models.RoundEndReason) uuid.UUID {
	if !g.Alive {
		return g.Winner
	}
	g.Alive = false

	scores := g.computeScores()
	if winner == uuid.Nil {
		best := math.MaxInt
		for _, pid := range g.order {
			if g.departed[pid] {
				continue
			}
			if scores[pid] < best {
				best = scores[pid]
				winner = pid
			}
		}
	}
	g.Winner = winner
	log.Infof("Game %s: round over (%s). Winner %s, scores %v.", g.ID, reason, winner, scores)

	empty := ""
	winnerStr := winner.String()
	ended := models.StatusEnded
	for _, pid := range g.order {
		if g.departed[pid] {
			continue
		}
		g.sendToPlayer(pid, GameMeta{
			PlayerPoint: scores,
			Turn:        &empty,
			Winner:      &winnerStr,
			GameStatus:  &ended,
		})
	}

	if g.OnGameEnd != nil {
		g.OnGameEnd(models.RoundRecord{
			RoundID:   g.ID,
			RoomID:    g.RoomID,
			Players:   g.Players(),
			Winner:    winner,
			Scores:    scores,
			Reason:    reason,
			StartedAt: g.StartedAt,
			EndedAt:   time.Now(),
		})
	}
	return winner
}

// computeScores sums the penalty value of each seat's remaining hand.
func (g *UnoGame) computeScores() map[uuid.UUID]int {
	scores := make(map[uuid.UUID]int, len(g.order))
	for _, pid := range g.order {
		scores[pid] = models.HandScore(g.hands[pid])
	}
	return scores
}

func (g *UnoGame) sendToPlayer(playerID uuid.UUID, meta GameMeta) {
	if g.SendToPlayerFn == nil {
		return
	}
	g.SendToPlayerFn(playerID, meta)
}

// Players returns the seat order fixed at deal time, departed seats included.
func (g *UnoGame) Players() []uuid.UUID {
	return append([]uuid.UUID(nil), g.order...)
}

// Hand returns a copy of the player's hand, or nil if they have no seat.
func (g *UnoGame) Hand(playerID uuid.UUID) []models.Card {
	hand, ok := g.hands[playerID]
	if !ok {
		return nil
	}
	return append([]models.Card{}, hand...)
}

// HasSeat reports whether the player was dealt into this round.
func (g *UnoGame) HasSeat(playerID uuid.UUID) bool {
	_, ok := g.hands[playerID]
	return ok
}

// HandSizes maps every seat to the number of cards it holds.
func (g *UnoGame) HandSizes() map[uuid.UUID]int {
	sizes := make(map[uuid.UUID]int, len(g.order))
	for _, pid := range g.order {
		sizes[pid] = len(g.hands[pid])
	}
	return sizes
}

// CardNum is the number of cards left in the draw pile.
func (g *UnoGame) CardNum() int {
	return len(g.Deck)
}

// IsDeparted reports whether the player left during this round.
func (g *UnoGame) IsDeparted(playerID uuid.UUID) bool {
	return g.departed[playerID]
}

// LiveCount is the number of seats that have not departed.
func (g *UnoGame) LiveCount() int {
	live := 0
	for _, pid := range g.order {
		if !g.departed[pid] {
			live++
		}
	}
	return live
}

// TotalCards counts every card in the deck, in hands and on the table.
func (g *UnoGame) TotalCards() int {
	total := len(g.Deck)
	for _, hand := range g.hands {
		total += len(hand)
	}
	return total + len(g.Discard)
}
