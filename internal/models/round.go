package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundEndReason explains why a round finished.
type RoundEndReason string

const (
	ReasonEmptyHand     RoundEndReason = "empty_hand"
	ReasonAttrition     RoundEndReason = "attrition"
	ReasonDeckExhausted RoundEndReason = "deck_exhausted"
)

// RoundRecord is the summary of a finished round handed to the historian.
type RoundRecord struct {
	RoundID   uuid.UUID         `json:"round_id"`
	RoomID    uuid.UUID         `json:"room_id"`
	Players   []uuid.UUID       `json:"players"`
	Winner    uuid.UUID         `json:"winner"`
	Scores    map[uuid.UUID]int `json:"scores"`
	Reason    RoundEndReason    `json:"reason"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
}
