package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// Membership is a room's occupant list. It keeps join order, which is also the
// seat order of the next round.
type Membership struct {
	order   []uuid.UUID
	members map[uuid.UUID]*models.PlayerProfile
}

func NewMembership() *Membership {
	return &Membership{members: make(map[uuid.UUID]*models.PlayerProfile)}
}

// Set adds or replaces a member. A new member goes to the end of the order.
func (m *Membership) Set(sid uuid.UUID, p *models.PlayerProfile) {
	if _, ok := m.members[sid]; !ok {
		m.order = append(m.order, sid)
	}
	m.members[sid] = p
}

// Delete removes a member and reports whether it was present.
func (m *Membership) Delete(sid uuid.UUID) bool {
	if _, ok := m.members[sid]; !ok {
		return false
	}
	delete(m.members, sid)
	for i, id := range m.order {
		if id == sid {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Membership) Get(sid uuid.UUID) (*models.PlayerProfile, bool) {
	p, ok := m.members[sid]
	return p, ok
}

func (m *Membership) Has(sid uuid.UUID) bool {
	_, ok := m.members[sid]
	return ok
}

func (m *Membership) Len() int {
	return len(m.order)
}

// IDs returns the member ids in join order.
func (m *Membership) IDs() []uuid.UUID {
	return append([]uuid.UUID(nil), m.order...)
}

// Profiles returns copies of the member profiles in join order.
func (m *Membership) Profiles() []models.PlayerProfile {
	out := make([]models.PlayerProfile, 0, len(m.order))
	for _, sid := range m.order {
		out = append(out, *m.members[sid])
	}
	return out
}

// AllReady reports whether every member has flagged Ready.
func (m *Membership) AllReady() bool {
	for _, p := range m.members {
		if p.Status != models.StateReady {
			return false
		}
	}
	return true
}
