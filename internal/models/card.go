// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
)

// Color is the colour of a card. Wild marks the colourless wildcards and, as an
// active colour, a table where no colour has been established yet.
type Color int

const (
	Yellow Color = iota
	Red
	Blue
	Green
	Wild
)

// RealColors lists the four playable colours in deck construction order.
var RealColors = []Color{Blue, Green, Red, Yellow}

// IsReal reports whether c is one of the four colours a wildcard may declare.
func (c Color) IsReal() bool {
	return c >= Yellow && c <= Green
}

func (c Color) String() string {
	switch c {
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	case Blue:
		return "blue"
	case Green:
		return "green"
	case Wild:
		return "wild"
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// Kind identifies what a card does when played.
type Kind int

const (
	Number Kind = iota
	DrawTwo
	Reverse
	Skip
	WildDrawFour
	WildColorSwitch
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case DrawTwo:
		return "draw_two"
	case Reverse:
		return "reverse"
	case Skip:
		return "skip"
	case WildDrawFour:
		return "wild_draw_four"
	case WildColorSwitch:
		return "wild"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Card is an immutable playing card. Value is meaningful only for Number cards.
type Card struct {
	Color Color
	Kind  Kind
	Value int
}

// NewNumberCard returns a Number card of the given colour and face value.
func NewNumberCard(color Color, value int) Card {
	return Card{Color: color, Kind: Number, Value: value}
}

// NewActionCard returns a coloured DrawTwo, Reverse or Skip card.
func NewActionCard(color Color, kind Kind) Card {
	return Card{Color: color, Kind: kind}
}

// NewWildCard returns a WildDrawFour or WildColorSwitch card.
func NewWildCard(kind Kind) Card {
	return Card{Color: Wild, Kind: kind}
}

// IsWild reports whether the card is a wildcard that requires a declared colour.
func (c Card) IsWild() bool {
	return c.Kind == WildDrawFour || c.Kind == WildColorSwitch
}

// Legal reports whether c may be played on top of last. activeColor is the colour
// currently in force; after a wildcard it is the colour its player declared.
// A nil last means the table is empty and anything goes.
func (c Card) Legal(last *Card, activeColor Color) bool {
	if last == nil {
		return true
	}
	if c.IsWild() {
		return true
	}
	if c.Color == last.Color {
		return true
	}
	if last.IsWild() && activeColor == c.Color {
		return true
	}
	switch c.Kind {
	case Number:
		return last.Kind == Number && last.Value == c.Value
	default:
		// DrawTwo on DrawTwo, Reverse on Reverse, Skip on Skip regardless of colour.
		return last.Kind == c.Kind
	}
}

// Score is the penalty value of a card left in hand when a round ends.
func (c Card) Score() int {
	switch c.Kind {
	case Number:
		return c.Value
	case DrawTwo, Reverse, Skip:
		return 20
	default:
		return 50
	}
}

func (c Card) String() string {
	if c.Kind == Number {
		return fmt.Sprintf("%s %d", c.Color, c.Value)
	}
	if c.IsWild() {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s %s", c.Color, c.Kind)
}

type cardJSON struct {
	Color Color `json:"color"`
	Kind  Kind  `json:"type"`
	Value *int  `json:"value,omitempty"`
}

// MarshalJSON emits {"color","type"} plus "value" for Number cards only.
func (c Card) MarshalJSON() ([]byte, error) {
	out := cardJSON{Color: c.Color, Kind: c.Kind}
	if c.Kind == Number {
		v := c.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var in cardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Color = in.Color
	c.Kind = in.Kind
	c.Value = 0
	if in.Value != nil {
		c.Value = *in.Value
	}
	return nil
}

// HandScore sums the penalty values of a hand.
func HandScore(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Score()
	}
	return total
}
