package models

import (
	"github.com/google/uuid"
)

// UserState is the lobby-facing status of a connected player.
type UserState int

const (
	StateOnline UserState = iota
	StateReady
	StateLeave
	StateOffline
)

func (s UserState) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateReady:
		return "ready"
	case StateLeave:
		return "leave"
	case StateOffline:
		return "offline"
	}
	return "unknown"
}

// PlayerProfile is the server-side record of a logged-in connection.
type PlayerProfile struct {
	SessionID uuid.UUID  `json:"_sockid"`
	Nick      string     `json:"nick"`
	Status    UserState  `json:"status"`
	RoomID    *uuid.UUID `json:"roomid,omitempty"`

	// Ping is the last round-trip time in milliseconds reported by a client heartbeat.
	Ping int64 `json:"ping,omitempty"`
}

// InRoom reports whether the profile currently points at a room.
func (p *PlayerProfile) InRoom() bool {
	return p.RoomID != nil && *p.RoomID != uuid.Nil
}
