// internal/game/rules.go
package game

import "fmt"

// DealCount is the number of cards each player receives at the start of a round.
const DealCount = 7

// HouseRules defines optional game rules that can modify standard play.
type HouseRules struct {
	DealCount     int  `json:"dealCount"`     // cards dealt per player; values <= 0 fall back to DealCount
	SkipSkipsNext bool `json:"skipSkipsNext"` // a Skip card passes over the next live player
}

// DefaultHouseRules returns the rules used when a room does not override them.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		DealCount:     DealCount,
		SkipSkipsNext: true,
	}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		if val, exists := newRules[key]; exists && val != nil {
			var n int
			switch v := val.(type) {
			case float64: // JSON numbers
				n = int(v)
			case int:
				n = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if n < minVal || n > maxVal {
				return fmt.Errorf("%s must be between %d and %d", key, minVal, maxVal)
			}
			*field = n
		}
		return nil
	}

	if err := assignInt(&rules.DealCount, "dealCount", 1, 15); err != nil {
		return err
	}
	if err := assignBool(&rules.SkipSkipsNext, "skipSkipsNext"); err != nil {
		return err
	}
	return nil
}

// ParseRules applies a map of rules on top of current. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
