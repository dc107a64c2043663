package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// PlayerPatch is a partial update for a profile. Nil fields are left alone.
type PlayerPatch struct {
	Nick   *string
	Status *models.UserState
	RoomID *uuid.UUID
	// ClearRoom unsets RoomID; it wins over RoomID.
	ClearRoom bool
	Ping      *int64
}

// Players is the directory of logged-in profiles. It is guarded by Hub.Mu.
type Players struct {
	profiles map[uuid.UUID]*models.PlayerProfile
}

func NewPlayers() *Players {
	return &Players{profiles: make(map[uuid.UUID]*models.PlayerProfile)}
}

// Add registers a profile. It fails if the session already logged in.
func (p *Players) Add(profile *models.PlayerProfile) bool {
	if _, exists := p.profiles[profile.SessionID]; exists {
		return false
	}
	p.profiles[profile.SessionID] = profile
	return true
}

// Set merges patch into the profile and reports whether the profile exists.
// The stored profile is updated in place, so rooms holding it see the change.
func (p *Players) Set(sid uuid.UUID, patch PlayerPatch) bool {
	profile, ok := p.profiles[sid]
	if !ok {
		return false
	}
	if patch.Nick != nil {
		profile.Nick = *patch.Nick
	}
	if patch.Status != nil {
		profile.Status = *patch.Status
	}
	if patch.ClearRoom {
		profile.RoomID = nil
	} else if patch.RoomID != nil {
		id := *patch.RoomID
		profile.RoomID = &id
	}
	if patch.Ping != nil {
		profile.Ping = *patch.Ping
	}
	return true
}

func (p *Players) Get(sid uuid.UUID) (*models.PlayerProfile, bool) {
	profile, ok := p.profiles[sid]
	return profile, ok
}

func (p *Players) Delete(sid uuid.UUID) {
	delete(p.profiles, sid)
}

func (p *Players) Count() int {
	return len(p.profiles)
}
