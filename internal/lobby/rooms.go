// internal/lobby/rooms.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrRoomLimit     = errors.New("room limit reached")
	ErrBadCapacity   = errors.New("room capacity out of range")
	ErrBadRules      = errors.New("invalid house rules")
	ErrNotLoggedIn   = errors.New("session has not logged in")
	ErrAlreadySeated = errors.New("player is seated in another room")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomInGame    = errors.New("room is in game")
	ErrWrongPassword = errors.New("wrong room password")
	ErrRoomFull      = errors.New("room is full")
	ErrNotInRoom     = errors.New("player is not in a room")
	ErrNoGame        = errors.New("room has no running round")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// RoundSink receives finished rounds, e.g. the Redis queue feeding the historian.
type RoundSink interface {
	PublishRound(ctx context.Context, rec models.RoundRecord) error
}

// Room is a bounded group of players around one round at a time.
type Room struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Owner      string            `json:"owner"`
	OwnerID    uuid.UUID         `json:"ownerId"`
	Max        int               `json:"max"`
	Count      int               `json:"count"`
	CreateTime int64             `json:"createTime"`
	Status     models.GameStatus `json:"status"`
	HouseRules game.HouseRules   `json:"houseRules"`

	passwordHash string

	Members *Membership   `json:"-"`
	Game    *game.UnoGame `json:"-"`
}

// RoomSummary is the public view of a room. The password never leaves the server.
type RoomSummary struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Owner       string            `json:"owner"`
	OwnerID     uuid.UUID         `json:"ownerId"`
	Max         int               `json:"max"`
	Count       int               `json:"count"`
	CreateTime  int64             `json:"createTime"`
	Status      models.GameStatus `json:"status"`
	HasPassword bool              `json:"hasPassword"`
	HouseRules  game.HouseRules   `json:"houseRules"`
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		Owner:       r.Owner,
		OwnerID:     r.OwnerID,
		Max:         r.Max,
		Count:       r.Count,
		CreateTime:  r.CreateTime,
		Status:      r.Status,
		HasPassword: r.passwordHash != "",
		HouseRules:  r.HouseRules,
	}
}

// CreateRoomRequest is the payload of a CreateRoom frame. HouseRules overrides
// the server defaults key by key, e.g. {"dealCount": 5}.
type CreateRoomRequest struct {
	Name       string                 `json:"name"`
	Max        int                    `json:"max"`
	Owner      string                 `json:"owner"`
	Password   string                 `json:"password,omitempty"`
	HouseRules map[string]interface{} `json:"houseRules,omitempty"`
}

// RoomPage is one page of the room list. Page is 1-based.
type RoomPage struct {
	List      []RoomSummary `json:"list"`
	Page      int           `json:"page"`
	PageCount int           `json:"pageCount"`
}

// BroadcastOptions drives Broadcast. Before may mutate the membership, PerMember
// is called once per member listed after Before ran, and After sees the final
// membership and may start further broadcasts.
type BroadcastOptions struct {
	Before    func(m *Membership)
	PerMember func(sid uuid.UUID, p *models.PlayerProfile)
	After     func(m *Membership)
}

// Rooms is the room directory. Every method expects Hub.Mu to be held.
type Rooms struct {
	list []*Room
	byID map[uuid.UUID]*Room

	maxRooms    int
	maxCapacity int
	rules       game.HouseRules

	players  *Players
	registry *Registry
	games    *game.GameStore
	sink     RoundSink
	logger   *logrus.Logger
}

// Count is the number of rooms.
func (r *Rooms) Count() int {
	return len(r.list)
}

// Get returns the room with the given id.
func (r *Rooms) Get(roomID uuid.UUID) (*Room, bool) {
	room, ok := r.byID[roomID]
	return room, ok
}

// CreateRoom opens an empty room owned by ownerID. The owner is not seated;
// they join like anybody else.
func (r *Rooms) CreateRoom(ownerID uuid.UUID, req CreateRoomRequest) (uuid.UUID, error) {
	profile, ok := r.players.Get(ownerID)
	if !ok {
		return uuid.Nil, ErrNotLoggedIn
	}
	if len(r.list) >= r.maxRooms {
		return uuid.Nil, ErrRoomLimit
	}
	if req.Max < 2 || req.Max > r.maxCapacity {
		return uuid.Nil, fmt.Errorf("%w: %d not in [2, %d]", ErrBadCapacity, req.Max, r.maxCapacity)
	}
	rules, err := game.ParseRules(req.HouseRules, r.rules)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBadRules, err)
	}

	owner := req.Owner
	if owner == "" {
		owner = profile.Nick
	}

	var hash string
	if req.Password != "" {
		h, err := auth.HashRoomPassword(req.Password)
		if err != nil {
			return uuid.Nil, fmt.Errorf("hashing room password: %w", err)
		}
		hash = h
	}

	id, _ := uuid.NewRandom()
	room := &Room{
		ID:           id,
		Name:         req.Name,
		Owner:        owner,
		OwnerID:      ownerID,
		Max:          req.Max,
		CreateTime:   time.Now().UnixMilli(),
		Status:       models.StatusOpen,
		HouseRules:   rules,
		passwordHash: hash,
		Members:      NewMembership(),
	}
	r.list = append(r.list, room)
	r.byID[id] = room
	r.logger.Infof("Room %s (%q, max %d) created by %s", id, room.Name, room.Max, ownerID)
	return id, nil
}

func (r *Rooms) delete(roomID uuid.UUID) {
	if _, ok := r.byID[roomID]; !ok {
		return
	}
	delete(r.byID, roomID)
	for i, room := range r.list {
		if room.ID == roomID {
			r.list = append(r.list[:i:i], r.list[i+1:]...)
			break
		}
	}
	r.games.DeleteGame(roomID)
	r.logger.Infof("Room %s deleted", roomID)
}

// JoinRoom seats sid in roomID. Joining the room one already sits in succeeds
// without side effects.
func (r *Rooms) JoinRoom(sid, roomID uuid.UUID, password string) error {
	profile, ok := r.players.Get(sid)
	if !ok {
		return ErrNotLoggedIn
	}
	if profile.InRoom() {
		current, exists := r.byID[*profile.RoomID]
		switch {
		case exists && current.Members.Has(sid) && current.ID == roomID:
			return nil
		case exists && current.Members.Has(sid):
			return ErrAlreadySeated
		default:
			// Stale pointer to a room that is gone or no longer lists us.
			r.players.Set(sid, PlayerPatch{ClearRoom: true})
		}
	}

	room, ok := r.byID[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Status == models.StatusInGame {
		return ErrRoomInGame
	}
	if room.passwordHash != "" {
		match, err := auth.ComparePasswordAndHash(password, room.passwordHash)
		if err != nil {
			r.logger.Warnf("Room %s: unreadable password hash: %v", room.ID, err)
		}
		if !match {
			return ErrWrongPassword
		}
	}
	if room.Members.Len() >= room.Max {
		return ErrRoomFull
	}

	online := models.StateOnline
	r.players.Set(sid, PlayerPatch{RoomID: &roomID, Status: &online})

	var count int
	r.Broadcast(roomID, BroadcastOptions{
		Before: func(m *Membership) {
			count = m.Len() + 1
		},
		PerMember: func(member uuid.UUID, _ *models.PlayerProfile) {
			r.registry.Send(member, models.EventPlayerJoinRoom, models.PlayerJoinRoomPush{
				PlayerData: *profile,
				RoomCount:  count,
			})
		},
		After: func(m *Membership) {
			m.Set(sid, profile)
			room.Count = m.Len()
		},
	})
	r.logger.Debugf("Room %s: %s joined (%d/%d)", room.ID, sid, room.Count, room.Max)
	return nil
}

// LeaveRoom takes sid out of its room. A live round loses the player; if only
// one occupant is left that occupant wins. An emptied room is deleted.
func (r *Rooms) LeaveRoom(sid uuid.UUID) {
	r.leaveRoom(sid, models.StateLeave)
}

// leaveRoom is LeaveRoom with the state reported to the rest of the round:
// StateLeave for an exit, StateOffline for a dropped connection.
func (r *Rooms) leaveRoom(sid uuid.UUID, state models.UserState) {
	profile, ok := r.players.Get(sid)
	if !ok || !profile.InRoom() {
		return
	}
	roomID := *profile.RoomID
	online := models.StateOnline
	r.players.Set(sid, PlayerPatch{ClearRoom: true, Status: &online})

	room, ok := r.byID[roomID]
	if !ok {
		return
	}

	g := room.Game
	var count int
	r.Broadcast(roomID, BroadcastOptions{
		Before: func(m *Membership) {
			m.Delete(sid)
			count = m.Len()
			room.Count = count
		},
		PerMember: func(member uuid.UUID, _ *models.PlayerProfile) {
			r.registry.Send(member, models.EventPlayerExitRoom, models.PlayerExitRoomPush{
				SessionID: sid,
				RoomCount: count,
			})
		},
		After: func(m *Membership) {
			if g == nil {
				return
			}
			// The leaver is flagged first so the final scores skip them.
			g.OnPlayerDeparture(sid, state)
			if m.Len() == 1 && g.Alive {
				survivor := m.IDs()[0]
				winner := g.GameOver(survivor, models.ReasonAttrition)
				ended := models.StatusEnded
				winnerStr := winner.String()
				r.registry.Send(survivor, models.EventGameMeta, game.GameMeta{
					Winner:     &winnerStr,
					GameStatus: &ended,
				})
			}
		},
	})
	r.logger.Debugf("Room %s: %s left (%d/%d)", roomID, sid, room.Count, room.Max)

	if room.Members.Len() == 0 {
		r.delete(roomID)
	}
}

// ListRooms returns one page of rooms in creation order.
func (r *Rooms) ListRooms(page, pageSize int) RoomPage {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	out := RoomPage{
		List:      []RoomSummary{},
		Page:      page,
		PageCount: (len(r.list) + pageSize - 1) / pageSize,
	}
	start := (page - 1) * pageSize
	if start >= len(r.list) {
		return out
	}
	end := min(start+pageSize, len(r.list))
	for _, room := range r.list[start:end] {
		out.List = append(out.List, room.Summary())
	}
	return out
}

// Broadcast runs opts against roomID's membership: Before, then PerMember for
// each member in join order, then After. It reports whether the room exists.
// Broadcasts started from After complete before Broadcast returns.
func (r *Rooms) Broadcast(roomID uuid.UUID, opts BroadcastOptions) bool {
	room, ok := r.byID[roomID]
	if !ok {
		return false
	}
	if opts.Before != nil {
		opts.Before(room.Members)
	}
	if opts.PerMember != nil {
		for _, sid := range room.Members.IDs() {
			if p, ok := room.Members.Get(sid); ok {
				opts.PerMember(sid, p)
			}
		}
	}
	if opts.After != nil {
		opts.After(room.Members)
	}
	return true
}

// Ready flags sid as ready. The round starts once the room is full and every
// member is ready.
func (r *Rooms) Ready(sid uuid.UUID) error {
	room, profile, err := r.seat(sid)
	if err != nil {
		return err
	}
	if room.Status == models.StatusInGame {
		return ErrRoomInGame
	}

	profile.Status = models.StateReady
	r.Broadcast(room.ID, BroadcastOptions{
		PerMember: func(member uuid.UUID, _ *models.PlayerProfile) {
			r.registry.Send(member, models.EventRoomUserState, models.RoomUserStatePush{
				SessionID: sid,
				Status:    profile.Status,
			})
		},
		After: func(m *Membership) {
			if m.Len() == room.Max && m.AllReady() {
				r.startRound(room)
			}
		},
	})
	return nil
}

// seat resolves the room sid is sitting in.
func (r *Rooms) seat(sid uuid.UUID) (*Room, *models.PlayerProfile, error) {
	profile, ok := r.players.Get(sid)
	if !ok {
		return nil, nil, ErrNotLoggedIn
	}
	if !profile.InRoom() {
		return nil, nil, ErrNotInRoom
	}
	room, ok := r.byID[*profile.RoomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if !room.Members.Has(sid) {
		return nil, nil, ErrNotInRoom
	}
	return room, profile, nil
}

// GameFor returns the running round of sid's room.
func (r *Rooms) GameFor(sid uuid.UUID) (*Room, *game.UnoGame, error) {
	room, _, err := r.seat(sid)
	if err != nil {
		return nil, nil, err
	}
	g, ok := r.games.GetGame(room.ID)
	if !ok || g != room.Game {
		return room, nil, ErrNoGame
	}
	return room, g, nil
}

func (r *Rooms) startRound(room *Room) {
	g, err := game.NewUnoGame(room.ID, room.Members.IDs(), room.HouseRules, nil)
	if err != nil {
		r.logger.Warnf("Room %s: cannot start round: %v", room.ID, err)
		return
	}
	g.SendToPlayerFn = func(pid uuid.UUID, meta game.GameMeta) {
		r.registry.Send(pid, models.EventGameMeta, meta)
	}
	g.OnGameEnd = func(rec models.RoundRecord) {
		r.onGameEnd(room, g, rec)
	}

	room.Status = models.StatusInGame
	room.Game = g
	r.games.AddGame(g)
	r.logger.Infof("Room %s: round %s started with %d players", room.ID, g.ID, room.Members.Len())

	r.Broadcast(room.ID, BroadcastOptions{
		PerMember: func(member uuid.UUID, _ *models.PlayerProfile) {
			r.registry.Send(member, models.EventGameStateChange, models.GameStateChangePush{Status: room.Status})
			r.registry.Send(member, models.EventGameMeta, g.MetaFor(member))
		},
	})
}

// onGameEnd reopens the room, resets everyone to Online and hands the record
// to the sink.
func (r *Rooms) onGameEnd(room *Room, g *game.UnoGame, rec models.RoundRecord) {
	if room.Game == g {
		room.Game = nil
		r.games.DeleteGame(room.ID)
	}
	room.Status = models.StatusOpen

	r.Broadcast(room.ID, BroadcastOptions{
		PerMember: func(member uuid.UUID, p *models.PlayerProfile) {
			p.Status = models.StateOnline
			r.registry.Send(member, models.EventRoomUserState, models.RoomUserStatePush{
				SessionID: member,
				Status:    p.Status,
			})
			r.registry.Send(member, models.EventGameStateChange, models.GameStateChangePush{Status: room.Status})
		},
	})

	if r.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.sink.PublishRound(ctx, rec); err != nil {
			r.logger.Warnf("Room %s: failed to publish round %s: %v", rec.RoomID, rec.RoundID, err)
		}
	}()
}
