// internal/models/event.go
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event is the shared code space for requests, responses and pushes.
// Values are part of the wire protocol; append only.
type Event int

const (
	EventLogin Event = iota
	EventChangeNick
	EventOnlineNum
	EventCreateRoom
	EventGetRoomList
	EventJoinRoom
	EventReady
	EventExitRoom
	EventPlayCard
	EventDrawCard

	// pushes
	EventPlayerJoinRoom
	EventPlayerExitRoom
	EventGameStateChange
	EventGameMeta
	EventRoomUserState
)

var eventNames = map[Event]string{
	EventLogin:           "login",
	EventChangeNick:      "change_nick",
	EventOnlineNum:       "online_num",
	EventCreateRoom:      "create_room",
	EventGetRoomList:     "get_room_list",
	EventJoinRoom:        "join_room",
	EventReady:           "ready",
	EventExitRoom:        "exit_room",
	EventPlayCard:        "play_card",
	EventDrawCard:        "draw_card",
	EventPlayerJoinRoom:  "player_join_room",
	EventPlayerExitRoom:  "player_exit_room",
	EventGameStateChange: "game_state_change",
	EventGameMeta:        "game_meta",
	EventRoomUserState:   "room_user_state",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// GameStatus is the lifecycle state of a room's round.
type GameStatus int

const (
	StatusOpen GameStatus = iota
	StatusInGame
	StatusEnded
)

// Frame is the outbound envelope for both responses and pushes.
type Frame struct {
	Event Event       `json:"func"`
	Data  interface{} `json:"data"`
}

// Request is the inbound envelope. Data is decoded by the handler for Event.
type Request struct {
	Event Event           `json:"func"`
	Data  json.RawMessage `json:"data"`
}

// PlayerJoinRoomPush tells existing members that someone joined.
type PlayerJoinRoomPush struct {
	PlayerData PlayerProfile `json:"playerData"`
	RoomCount  int           `json:"roomCount"`
}

// PlayerExitRoomPush tells remaining members that someone left.
type PlayerExitRoomPush struct {
	SessionID uuid.UUID `json:"sessionId"`
	RoomCount int       `json:"roomCount"`
}

// GameStateChangePush announces a room status transition.
type GameStateChangePush struct {
	Status GameStatus `json:"status"`
}

// RoomUserStatePush is encoded as the pair [sessionId, status].
type RoomUserStatePush struct {
	SessionID uuid.UUID
	Status    UserState
}

func (p RoomUserStatePush) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.SessionID, p.Status})
}

func (p *RoomUserStatePush) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("room user state: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.SessionID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &p.Status)
}
