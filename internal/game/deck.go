package game

import (
	"math/rand"

	"github.com/jason-s-yu/uno/internal/models"
)

// DeckSize is the number of cards in a standard deck.
const DeckSize = 108

// NewDeck builds the standard unshuffled deck: per colour one 0, two each of
// 1-9, two each of DrawTwo, Reverse and Skip; plus four of each wildcard.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, color := range models.RealColors {
		deck = append(deck, models.NewNumberCard(color, 0))
		for v := 1; v <= 9; v++ {
			deck = append(deck, models.NewNumberCard(color, v), models.NewNumberCard(color, v))
		}
		for _, kind := range []models.Kind{models.DrawTwo, models.Reverse, models.Skip} {
			deck = append(deck, models.NewActionCard(color, kind), models.NewActionCard(color, kind))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, models.NewWildCard(models.WildDrawFour), models.NewWildCard(models.WildColorSwitch))
	}
	return deck
}

// Shuffle permutes deck in place with a Fisher-Yates shuffle and returns it.
func Shuffle(deck []models.Card, rng *rand.Rand) []models.Card {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
