// internal/game/game_test.go
package game

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects per-player metas and finished rounds instead of sending them over WS.
type mockBroadcaster struct {
	mu          sync.Mutex
	playerMetas map[uuid.UUID][]GameMeta
	rounds      []models.RoundRecord
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerMetas: make(map[uuid.UUID][]GameMeta),
	}
}

func (mb *mockBroadcaster) sendToPlayerFn(playerID uuid.UUID, meta GameMeta) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerMetas[playerID] = append(mb.playerMetas[playerID], meta)
}

func (mb *mockBroadcaster) onGameEnd(rec models.RoundRecord) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.rounds = append(mb.rounds, rec)
}

func (mb *mockBroadcaster) getLastPlayerMeta(playerID uuid.UUID) *GameMeta {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	metas, ok := mb.playerMetas[playerID]
	if !ok || len(metas) == 0 {
		return nil
	}
	return &metas[len(metas)-1]
}

// setupTestGame deals a seeded round to numPlayers fresh players.
func setupTestGame(t *testing.T, numPlayers int, rules *HouseRules) (*UnoGame, []uuid.UUID, *mockBroadcaster) {
	players := make([]uuid.UUID, numPlayers)
	for i := range players {
		players[i] = uuid.New()
	}
	r := DefaultHouseRules()
	if rules != nil {
		r = *rules
	}
	g, err := NewUnoGame(uuid.New(), players, r, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	mb := newMockBroadcaster()
	g.SendToPlayerFn = mb.sendToPlayerFn
	g.OnGameEnd = mb.onGameEnd
	return g, players, mb
}

// setHand replaces a player's hand. The table no longer holds exactly one deck
// afterwards, so tests using it do not check card totals.
func setHand(g *UnoGame, playerID uuid.UUID, cards ...models.Card) {
	g.hands[playerID] = cards
}

func red(v int) models.Card  { return models.NewNumberCard(models.Red, v) }
func blue(v int) models.Card { return models.NewNumberCard(models.Blue, v) }

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	perColor := map[models.Color]int{}
	perKind := map[models.Kind]int{}
	zeros := 0
	for _, c := range deck {
		perColor[c.Color]++
		perKind[c.Kind]++
		if c.Kind == models.Number && c.Value == 0 {
			zeros++
		}
	}
	for _, color := range models.RealColors {
		assert.Equal(t, 25, perColor[color], "colour %s", color)
	}
	assert.Equal(t, 8, perColor[models.Wild])
	assert.Equal(t, 4, zeros)
	assert.Equal(t, 4, perKind[models.WildDrawFour])
	assert.Equal(t, 4, perKind[models.WildColorSwitch])
	assert.Equal(t, 8, perKind[models.DrawTwo])
	assert.Equal(t, 8, perKind[models.Skip])
	assert.Equal(t, 8, perKind[models.Reverse])
}

func TestNewUnoGameDeals(t *testing.T) {
	g, players, _ := setupTestGame(t, 3, nil)

	for _, pid := range players {
		assert.Len(t, g.Hand(pid), DealCount)
	}
	assert.Equal(t, DeckSize-3*DealCount, g.CardNum())
	assert.Equal(t, DeckSize, g.TotalCards())
	assert.Equal(t, players[0], g.TurnPlayerID)
	assert.True(t, g.Clockwise)
	assert.Equal(t, models.Wild, g.ActiveColor)
	assert.Nil(t, g.LastCard)
	assert.True(t, g.Alive)
}

func TestNewUnoGameRejectsSinglePlayer(t *testing.T) {
	_, err := NewUnoGame(uuid.New(), []uuid.UUID{uuid.New()}, DefaultHouseRules(), nil)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestPlayCardAdvancesTurn(t *testing.T) {
	g, players, _ := setupTestGame(t, 3, nil)
	a, b := players[0], players[1]
	setHand(g, a, red(5), blue(3))
	setHand(g, b, blue(5), red(9))

	require.NoError(t, g.PlayCard(a, 0, nil))
	assert.Equal(t, b, g.TurnPlayerID)
	assert.Equal(t, models.Red, g.ActiveColor)
	require.NotNil(t, g.LastCard)
	assert.Equal(t, red(5), *g.LastCard)
	assert.Equal(t, []models.Card{blue(3)}, g.Hand(a))

	// Same value, different colour.
	require.NoError(t, g.PlayCard(b, 0, nil))
	assert.Equal(t, models.Blue, g.ActiveColor)
	assert.Equal(t, players[2], g.TurnPlayerID)
}

func TestPlayCardRejections(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	setHand(g, a, red(5), blue(7))
	setHand(g, b, blue(6))

	assert.ErrorIs(t, g.PlayCard(b, 0, nil), ErrNotYourTurn)
	assert.ErrorIs(t, g.PlayCard(uuid.New(), 0, nil), ErrUnknownPlayer)
	assert.ErrorIs(t, g.PlayCard(a, 2, nil), ErrBadIndex)
	assert.ErrorIs(t, g.PlayCard(a, -1, nil), ErrBadIndex)

	require.NoError(t, g.PlayCard(a, 0, nil))
	before := g.Hand(b)
	assert.ErrorIs(t, g.PlayCard(b, 0, nil), ErrIllegalCard)
	assert.Equal(t, before, g.Hand(b), "failed play must not change the hand")
	assert.Equal(t, b, g.TurnPlayerID)
	assert.Equal(t, models.Red, g.ActiveColor)
}

func TestWildRequiresColor(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	setHand(g, a, models.NewWildCard(models.WildColorSwitch), red(1))
	setHand(g, b, blue(4), red(2))

	wild := models.Wild
	assert.ErrorIs(t, g.PlayCard(a, 0, nil), ErrColorRequired)
	assert.ErrorIs(t, g.PlayCard(a, 0, &wild), ErrColorRequired)
	assert.Len(t, g.Hand(a), 2)

	declared := models.Blue
	require.NoError(t, g.PlayCard(a, 0, &declared))
	assert.Equal(t, models.Blue, g.ActiveColor)

	// Red does not match the declared colour, blue does.
	assert.ErrorIs(t, g.PlayCard(b, 1, nil), ErrIllegalCard)
	require.NoError(t, g.PlayCard(b, 0, nil))
}

func TestDrawTwoStacking(t *testing.T) {
	g, players, _ := setupTestGame(t, 3, nil)
	a, b, c := players[0], players[1], players[2]
	setHand(g, a, models.NewActionCard(models.Red, models.DrawTwo), red(1))
	setHand(g, b, models.NewActionCard(models.Blue, models.DrawTwo), blue(1))
	setHand(g, c, red(8))

	require.NoError(t, g.PlayCard(a, 0, nil))
	assert.Equal(t, 2, g.PendingDraw)
	require.NoError(t, g.PlayCard(b, 0, nil))
	assert.Equal(t, 4, g.PendingDraw)

	deckBefore := g.CardNum()
	drawn, err := g.DrawCard(c)
	require.NoError(t, err)
	assert.Len(t, drawn, 4)
	assert.Len(t, g.Hand(c), 5)
	assert.Equal(t, deckBefore-4, g.CardNum())
	assert.Equal(t, 0, g.PendingDraw)
	assert.Equal(t, a, g.TurnPlayerID)
}

func TestWildDrawFourAddsPenalty(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	setHand(g, a, models.NewWildCard(models.WildDrawFour), red(1))
	setHand(g, b, blue(2))

	green := models.Green
	require.NoError(t, g.PlayCard(a, 0, &green))
	assert.Equal(t, 4, g.PendingDraw)
	assert.Equal(t, models.Green, g.ActiveColor)

	drawn, err := g.DrawCard(b)
	require.NoError(t, err)
	assert.Len(t, drawn, 4)
	assert.Equal(t, a, g.TurnPlayerID)
}

func TestReverseFlipsDirection(t *testing.T) {
	g, players, _ := setupTestGame(t, 3, nil)
	a := players[0]
	setHand(g, a, models.NewActionCard(models.Red, models.Reverse), red(1))

	require.NoError(t, g.PlayCard(a, 0, nil))
	assert.False(t, g.Clockwise)
	assert.Equal(t, players[2], g.TurnPlayerID)
	assert.Equal(t, 2, g.Turn)
}

func TestSkip(t *testing.T) {
	t.Run("skips next player", func(t *testing.T) {
		g, players, _ := setupTestGame(t, 3, nil)
		setHand(g, players[0], models.NewActionCard(models.Red, models.Skip), red(1))
		require.NoError(t, g.PlayCard(players[0], 0, nil))
		assert.Equal(t, players[2], g.TurnPlayerID)
	})

	t.Run("plain advance when rule is off", func(t *testing.T) {
		rules := DefaultHouseRules()
		rules.SkipSkipsNext = false
		g, players, _ := setupTestGame(t, 3, &rules)
		setHand(g, players[0], models.NewActionCard(models.Red, models.Skip), red(1))
		require.NoError(t, g.PlayCard(players[0], 0, nil))
		assert.Equal(t, players[1], g.TurnPlayerID)
	})

	t.Run("two players returns to actor", func(t *testing.T) {
		g, players, _ := setupTestGame(t, 2, nil)
		setHand(g, players[0], models.NewActionCard(models.Red, models.Skip), red(1))
		require.NoError(t, g.PlayCard(players[0], 0, nil))
		assert.Equal(t, players[0], g.TurnPlayerID)
	})
}

func TestEmptyHandWins(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	setHand(g, a, red(1))
	setHand(g, b, red(2), models.NewWildCard(models.WildDrawFour))

	require.NoError(t, g.PlayCard(a, 0, nil))
	assert.False(t, g.Alive)
	assert.Equal(t, a, g.Winner)

	require.Len(t, mb.rounds, 1)
	rec := mb.rounds[0]
	assert.Equal(t, a, rec.Winner)
	assert.Equal(t, models.ReasonEmptyHand, rec.Reason)
	assert.Equal(t, 0, rec.Scores[a])
	assert.Equal(t, 52, rec.Scores[b])
	assert.Equal(t, g.RoomID, rec.RoomID)

	for _, pid := range players {
		meta := mb.getLastPlayerMeta(pid)
		require.NotNil(t, meta, "player %s should receive the final scores", pid)
		require.NotNil(t, meta.Winner)
		assert.Equal(t, a.String(), *meta.Winner)
		assert.Equal(t, "", *meta.Turn)
		assert.Equal(t, models.StatusEnded, *meta.GameStatus)
		assert.Equal(t, 52, meta.PlayerPoint[b])
	}

	// Further moves and repeated game-over calls are no-ops.
	assert.ErrorIs(t, g.PlayCard(b, 0, nil), ErrGameOver)
	_, err := g.DrawCard(b)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Equal(t, a, g.GameOver(b, models.ReasonAttrition))
	assert.Len(t, mb.rounds, 1)
}

func TestDeckExhaustedEndsRound(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	g.hands[a] = []models.Card{red(1)}
	g.hands[b] = []models.Card{models.NewWildCard(models.WildColorSwitch)}
	g.PendingDraw = 4
	g.Deck = []models.Card{blue(3), blue(2)}

	drawn, err := g.DrawCard(a)
	require.NoError(t, err)
	assert.Len(t, drawn, 2, "draw is capped at what is left")
	assert.Equal(t, 0, g.CardNum())
	assert.False(t, g.Alive)
	assert.Equal(t, a, g.Winner, "lowest score wins")

	require.Len(t, mb.rounds, 1)
	assert.Equal(t, models.ReasonDeckExhausted, mb.rounds[0].Reason)
	assert.Equal(t, 6, mb.rounds[0].Scores[a])
	assert.Equal(t, 50, mb.rounds[0].Scores[b])
}

func TestDrawFromEmptyDeck(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	g.Deck = nil
	_, err := g.DrawCard(players[0])
	assert.ErrorIs(t, err, ErrDeckEmpty)
	assert.True(t, g.Alive)
}

func TestDepartureSkipsSeat(t *testing.T) {
	g, players, mb := setupTestGame(t, 3, nil)
	a, b, c := players[0], players[1], players[2]
	setHand(g, a, red(1), red(2))

	g.OnPlayerDeparture(b, models.StateLeave)
	assert.True(t, g.IsDeparted(b))
	assert.Equal(t, 2, g.LiveCount())
	meta := mb.getLastPlayerMeta(a)
	require.NotNil(t, meta)
	assert.Equal(t, map[uuid.UUID]string{b: "leave"}, meta.PlayerState)
	assert.Nil(t, meta.Turn, "turn is unchanged when the departed player did not hold it")

	require.NoError(t, g.PlayCard(a, 0, nil))
	assert.Equal(t, c, g.TurnPlayerID, "departed seat is skipped")
	assert.Equal(t, 2, g.Turn, "seat indexes are stable")

	// c drops while holding the turn: it passes back to a, who is told.
	g.OnPlayerDeparture(c, models.StateOffline)
	assert.Equal(t, a, g.TurnPlayerID)
	meta = mb.getLastPlayerMeta(a)
	require.NotNil(t, meta)
	require.NotNil(t, meta.Turn)
	assert.Equal(t, a.String(), *meta.Turn)
	assert.Equal(t, map[uuid.UUID]string{c: "offline"}, meta.PlayerState)
	assert.Nil(t, mb.getLastPlayerMeta(b))
	assert.Nil(t, mb.getLastPlayerMeta(c))

	// A second departure of the same seat sends nothing.
	pushes := len(mb.playerMetas[a])
	g.OnPlayerDeparture(c, models.StateLeave)
	assert.Len(t, mb.playerMetas[a], pushes)

	_, err := g.DrawCard(c)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestTurnCyclesAroundDepartedSeats(t *testing.T) {
	for _, tc := range []struct {
		name      string
		clockwise bool
		want      []int
	}{
		{"clockwise", true, []int{2, 4, 0, 2, 4, 0, 2, 4, 0, 2}},
		{"counter-clockwise", false, []int{4, 2, 0, 4, 2, 0, 4, 2, 0, 4}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, players, _ := setupTestGame(t, 5, nil)
			g.OnPlayerDeparture(players[1], models.StateLeave)
			g.OnPlayerDeparture(players[3], models.StateOffline)
			require.Equal(t, 0, g.Turn)
			g.Clockwise = tc.clockwise

			var seats []int
			returns := 0
			for i := 0; i < 10; i++ {
				g.advanceTurn(1)
				assert.False(t, g.IsDeparted(g.TurnPlayerID), "step %d landed on a departed seat", i)
				assert.Equal(t, players[g.Turn], g.TurnPlayerID)
				if g.Turn == 0 {
					returns++
				}
				seats = append(seats, g.Turn)
			}
			assert.Equal(t, tc.want, seats)
			assert.Equal(t, 3, returns)
		})
	}
}

func TestGameOverWithoutWinnerIgnoresDeparted(t *testing.T) {
	g, players, mb := setupTestGame(t, 3, nil)
	a, b, c := players[0], players[1], players[2]
	g.hands[a] = []models.Card{red(9)}
	g.hands[b] = []models.Card{red(1)}
	g.hands[c] = []models.Card{red(5)}

	g.OnPlayerDeparture(b, models.StateLeave)
	winner := g.GameOver(uuid.Nil, models.ReasonAttrition)
	assert.Equal(t, c, winner)
	assert.Nil(t, mb.getLastPlayerMeta(b), "departed players get no final push")
	require.Len(t, mb.rounds, 1)
	assert.Equal(t, players, mb.rounds[0].Players)
}

func TestMoveMeta(t *testing.T) {
	g, players, _ := setupTestGame(t, 2, nil)
	a, b := players[0], players[1]
	setHand(g, a, red(1), red(2))
	require.NoError(t, g.PlayCard(a, 0, nil))

	own := g.MoveMeta(a, a)
	require.NotNil(t, own.Cards)
	assert.Equal(t, []models.Card{red(2)}, *own.Cards)
	assert.Equal(t, map[uuid.UUID]int{a: 1}, own.PlayersCardsNum)
	assert.Equal(t, b.String(), *own.Turn)
	assert.Nil(t, own.Winner)

	other := g.MoveMeta(a, b)
	assert.Nil(t, other.Cards)
	assert.Equal(t, models.Red, *other.Color)
	assert.Equal(t, g.CardNum(), *other.CardNum)

	start := g.MetaFor(b)
	require.NotNil(t, start.Cards)
	assert.Len(t, *start.Cards, DealCount)
	assert.Equal(t, models.StatusInGame, *start.GameStatus)
	assert.Len(t, start.PlayersCardsNum, 2)
}

// TestRandomPlayConservesCards plays seeded rounds greedily and checks that no
// card is ever created or lost.
func TestRandomPlayConservesCards(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
		g, err := NewUnoGame(uuid.New(), players, DefaultHouseRules(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		rounds := 0
		g.OnGameEnd = func(models.RoundRecord) { rounds++ }

		declared := models.Red
		for step := 0; step < 1000 && g.Alive; step++ {
			pid := g.TurnPlayerID
			played := false
			for i, c := range g.Hand(pid) {
				if c.Legal(g.LastCard, g.ActiveColor) {
					require.NoError(t, g.PlayCard(pid, i, &declared))
					played = true
					break
				}
			}
			if !played {
				_, err := g.DrawCard(pid)
				require.NoError(t, err)
			}
			require.Equal(t, DeckSize, g.TotalCards(), "seed %d step %d", seed, step)
			require.GreaterOrEqual(t, g.PendingDraw, 0)
		}
		assert.False(t, g.Alive, "seed %d did not finish", seed)
		assert.Equal(t, 1, rounds)
	}
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(map[string]interface{}{"dealCount": float64(5), "skipSkipsNext": false}, DefaultHouseRules())
	require.NoError(t, err)
	assert.Equal(t, 5, rules.DealCount)
	assert.False(t, rules.SkipSkipsNext)

	_, err = ParseRules(map[string]interface{}{"dealCount": "five"}, DefaultHouseRules())
	assert.Error(t, err)
	_, err = ParseRules(map[string]interface{}{"dealCount": float64(0)}, DefaultHouseRules())
	assert.Error(t, err)
}

func TestGameStore(t *testing.T) {
	g, _, _ := setupTestGame(t, 2, nil)
	store := NewGameStore()
	store.AddGame(g)

	got, ok := store.GetGame(g.RoomID)
	require.True(t, ok)
	assert.Same(t, g, got)
	assert.Equal(t, 1, store.Count())

	store.DeleteGame(g.RoomID)
	_, ok = store.GetGame(g.RoomID)
	assert.False(t, ok)
}
