// internal/handlers/router.go
package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/models"
)

type eventHandler func(rt *EventRouter, data json.RawMessage)

// routes is the dispatch table for inbound frames. ExitRoom is the only
// request that gets no response.
var routes = map[models.Event]eventHandler{
	models.EventLogin:       (*EventRouter).login,
	models.EventChangeNick:  (*EventRouter).changeNick,
	models.EventOnlineNum:   (*EventRouter).onlineNum,
	models.EventCreateRoom:  (*EventRouter).createRoom,
	models.EventGetRoomList: (*EventRouter).getRoomList,
	models.EventJoinRoom:    (*EventRouter).joinRoom,
	models.EventReady:       (*EventRouter).ready,
	models.EventExitRoom:    (*EventRouter).exitRoom,
	models.EventPlayCard:    (*EventRouter).playCard,
	models.EventDrawCard:    (*EventRouter).drawCard,
}

// EventRouter dispatches the frames of one connection.
type EventRouter struct {
	sid  uuid.UUID
	conn *lobby.Connection
	gs   *GameServer
}

func NewEventRouter(gs *GameServer, conn *lobby.Connection) *EventRouter {
	return &EventRouter{sid: conn.SessionID, conn: conn, gs: gs}
}

// Handle decodes one {func, data} frame and runs its handler while holding
// the hub lock. Malformed frames and unknown events are logged and dropped.
func (rt *EventRouter) Handle(raw []byte) {
	var req models.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		rt.gs.Logger.Warnf("Session %s: dropping malformed frame: %v", rt.sid, err)
		return
	}
	h, ok := routes[req.Event]
	if !ok {
		rt.gs.Logger.Warnf("Session %s: dropping frame with unknown event %d", rt.sid, req.Event)
		return
	}

	rt.gs.Hub.Mu.Lock()
	defer rt.gs.Hub.Mu.Unlock()
	h(rt, req.Data)
}

func (rt *EventRouter) respond(event models.Event, data interface{}) {
	rt.conn.Write(event, data)
}

// decode unmarshals a payload, logging and reporting failure.
func (rt *EventRouter) decode(event models.Event, data json.RawMessage, v interface{}) bool {
	if len(data) == 0 || string(data) == "null" {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		rt.gs.Logger.Warnf("Session %s: malformed %s payload: %v", rt.sid, event, err)
		return false
	}
	return true
}

// SuccResponse is the bare {succ[, reason]} reply.
type SuccResponse struct {
	Succ   bool   `json:"succ"`
	Reason string `json:"reason,omitempty"`
}

func result(err error) SuccResponse {
	if err != nil {
		return SuccResponse{Succ: false, Reason: reasonFor(err)}
	}
	return SuccResponse{Succ: true}
}

// reasonFor maps domain errors to the short codes clients switch on.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, lobby.ErrRoomLimit):
		return "room_limit"
	case errors.Is(err, lobby.ErrBadCapacity):
		return "bad_capacity"
	case errors.Is(err, lobby.ErrBadRules):
		return "bad_rules"
	case errors.Is(err, lobby.ErrNotLoggedIn):
		return "not_logged_in"
	case errors.Is(err, lobby.ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, lobby.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, lobby.ErrRoomInGame):
		return "in_game"
	case errors.Is(err, lobby.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, lobby.ErrRoomFull):
		return "room_full"
	case errors.Is(err, lobby.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, lobby.ErrNoGame):
		return "no_game"
	case errors.Is(err, game.ErrGameOver):
		return "game_over"
	case errors.Is(err, game.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrBadIndex):
		return "bad_index"
	case errors.Is(err, game.ErrColorRequired):
		return "color_required"
	case errors.Is(err, game.ErrIllegalCard):
		return "illegal_card"
	case errors.Is(err, game.ErrDeckEmpty):
		return "deck_empty"
	}
	return "error"
}

// clientVersion accepts the version as a JSON number or string.
type clientVersion int

func (v *clientVersion) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = clientVersion(n)
	return nil
}

// LoginRequest accepts the version under "clientVersion" or the short "cv".
type LoginRequest struct {
	Nick          string        `json:"nick"`
	ClientVersion clientVersion `json:"clientVersion"`
	CV            clientVersion `json:"cv"`
}

type LoginResponse struct {
	Succ   bool      `json:"succ"`
	UserID uuid.UUID `json:"userId"`
	Reason string    `json:"reason,omitempty"`
	Token  string    `json:"token,omitempty"`
}

func (rt *EventRouter) login(data json.RawMessage) {
	var req LoginRequest
	if !rt.decode(models.EventLogin, data, &req) {
		return
	}
	version := int(req.ClientVersion)
	if version == 0 {
		version = int(req.CV)
	}

	hub := rt.gs.Hub
	resp := LoginResponse{Succ: true, UserID: rt.sid}
	if version != rt.gs.Config.ServerVersion {
		resp.Succ, resp.Reason = false, "version"
	}
	if hub.Players.Count() >= hub.MaxPlayers {
		resp.Succ, resp.Reason = false, "count_limit"
	}
	if resp.Succ {
		nick := strings.TrimSpace(req.Nick)
		if nick == "" {
			nick = "guest-" + rt.sid.String()[:4]
		}
		resp.Succ = hub.Players.Add(&models.PlayerProfile{
			SessionID: rt.sid,
			Nick:      nick,
			Status:    models.StateOnline,
		})
		if resp.Succ {
			token, err := auth.CreateJWT(rt.sid, nick)
			if err != nil {
				rt.gs.Logger.Warnf("Session %s: could not issue token: %v", rt.sid, err)
			}
			resp.Token = token
			rt.gs.Logger.Infof("Session %s logged in as %q", rt.sid, nick)
		}
	}
	rt.respond(models.EventLogin, resp)
}

func (rt *EventRouter) changeNick(data json.RawMessage) {
	var nick string
	if !rt.decode(models.EventChangeNick, data, &nick) {
		return
	}
	nick = strings.TrimSpace(nick)
	succ := nick != "" && rt.gs.Hub.Players.Set(rt.sid, lobby.PlayerPatch{Nick: &nick})
	rt.respond(models.EventChangeNick, SuccResponse{Succ: succ})
}

type OnlineNumResponse struct {
	Count int `json:"count"`
}

func (rt *EventRouter) onlineNum(json.RawMessage) {
	rt.respond(models.EventOnlineNum, OnlineNumResponse{Count: rt.gs.Hub.Players.Count()})
}

type CreateRoomResponse struct {
	Succ   bool      `json:"succ"`
	RoomID uuid.UUID `json:"roomid"`
	Reason string    `json:"reason,omitempty"`
}

func (rt *EventRouter) createRoom(data json.RawMessage) {
	var req lobby.CreateRoomRequest
	if !rt.decode(models.EventCreateRoom, data, &req) {
		return
	}
	id, err := rt.gs.Hub.Rooms.CreateRoom(rt.sid, req)
	resp := CreateRoomResponse{Succ: err == nil, RoomID: id}
	if err != nil {
		resp.Reason = reasonFor(err)
		rt.gs.Logger.Debugf("Session %s: create room failed: %v", rt.sid, err)
	}
	rt.respond(models.EventCreateRoom, resp)
}

type RoomListRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (rt *EventRouter) getRoomList(data json.RawMessage) {
	var req RoomListRequest
	if !rt.decode(models.EventGetRoomList, data, &req) {
		return
	}
	rt.respond(models.EventGetRoomList, rt.gs.Hub.Rooms.ListRooms(req.Page, req.PageSize))
}

type JoinRoomRequest struct {
	ID       uuid.UUID `json:"id"`
	Password string    `json:"password,omitempty"`
}

type JoinRoomResponse struct {
	Succ     bool                   `json:"succ"`
	Reason   string                 `json:"reason,omitempty"`
	Players  []models.PlayerProfile `json:"players,omitempty"`
	RoomData *lobby.RoomSummary     `json:"roomData,omitempty"`
}

func (rt *EventRouter) joinRoom(data json.RawMessage) {
	var req JoinRoomRequest
	if !rt.decode(models.EventJoinRoom, data, &req) {
		return
	}
	rooms := rt.gs.Hub.Rooms
	if err := rooms.JoinRoom(rt.sid, req.ID, req.Password); err != nil {
		rt.gs.Logger.Debugf("Session %s: join room %s failed: %v", rt.sid, req.ID, err)
		rt.respond(models.EventJoinRoom, JoinRoomResponse{Succ: false, Reason: reasonFor(err)})
		return
	}
	room, _ := rooms.Get(req.ID)
	summary := room.Summary()
	rt.respond(models.EventJoinRoom, JoinRoomResponse{
		Succ:     true,
		Players:  room.Members.Profiles(),
		RoomData: &summary,
	})
}

func (rt *EventRouter) ready(json.RawMessage) {
	err := rt.gs.Hub.Rooms.Ready(rt.sid)
	if err != nil {
		rt.gs.Logger.Debugf("Session %s: ready failed: %v", rt.sid, err)
	}
	rt.respond(models.EventReady, result(err))
}

func (rt *EventRouter) exitRoom(json.RawMessage) {
	rt.gs.Hub.Rooms.LeaveRoom(rt.sid)
}

type PlayCardRequest struct {
	Index int           `json:"index"`
	Color *models.Color `json:"color,omitempty"`
}

func (rt *EventRouter) playCard(data json.RawMessage) {
	var req PlayCardRequest
	if !rt.decode(models.EventPlayCard, data, &req) {
		return
	}
	room, g, err := rt.gs.Hub.Rooms.GameFor(rt.sid)
	if err == nil {
		err = g.PlayCard(rt.sid, req.Index, req.Color)
	}
	if err != nil {
		rt.gs.Logger.Debugf("Session %s: play card %d rejected: %v", rt.sid, req.Index, err)
	}
	rt.respond(models.EventPlayCard, result(err))
	if err == nil {
		rt.broadcastMove(room, g)
	}
}

func (rt *EventRouter) drawCard(json.RawMessage) {
	room, g, err := rt.gs.Hub.Rooms.GameFor(rt.sid)
	if err == nil {
		_, err = g.DrawCard(rt.sid)
	}
	if err != nil {
		rt.gs.Logger.Debugf("Session %s: draw rejected: %v", rt.sid, err)
	}
	rt.respond(models.EventDrawCard, result(err))
	if err == nil {
		rt.broadcastMove(room, g)
	}
}

// broadcastMove pushes the post-move table to every member of the room.
func (rt *EventRouter) broadcastMove(room *lobby.Room, g *game.UnoGame) {
	registry := rt.gs.Hub.Registry
	rt.gs.Hub.Rooms.Broadcast(room.ID, lobby.BroadcastOptions{
		PerMember: func(member uuid.UUID, _ *models.PlayerProfile) {
			registry.Send(member, models.EventGameMeta, g.MoveMeta(rt.sid, member))
		},
	})
}
