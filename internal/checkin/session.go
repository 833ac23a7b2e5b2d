package checkin

import (
	"sync"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// Phase is the current step of a user's interaction.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseNeedName         Phase = "need_name"
	PhaseNeedContact      Phase = "need_contact"
	PhasePickingPlace     Phase = "picking_place"
	PhasePickingSlot      Phase = "picking_slot"
	PhasePickingAction    Phase = "picking_action"
	PhaseAwaitingLocation Phase = "awaiting_location"
)

// Session holds one user's in-flight selections. It is replaced as a whole on
// every transition and never persisted.
type Session struct {
	Phase  Phase
	Places []string      // candidates offered in PickingPlace
	Place  string        // chosen place key
	Slots  []domain.Slot // candidates offered in PickingSlot
	Slot   *domain.Slot  // chosen slot
	Action domain.Action // chosen action
}

func idle() Session { return Session{Phase: PhaseIdle} }

// Sessions stores one session per user; the last write wins.
type Sessions interface {
	Get(userID int64) Session
	Put(userID int64, s Session)
	Reset(userID int64)
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu    sync.RWMutex
	state map[int64]Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{state: make(map[int64]Session)}
}

// Get returns the user's session, Idle when none exists.
func (m *MemorySessions) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.state[userID]
	if !ok {
		return idle()
	}
	return s
}

func (m *MemorySessions) Put(userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[userID] = s
}

func (m *MemorySessions) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, userID)
}
