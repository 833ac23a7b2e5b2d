package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// MemoryRepo is a process-local Repo. It backs tests and dry runs (DB_PATH=:memory:).
type MemoryRepo struct {
	mu         sync.RWMutex
	profiles   map[int64]domain.Profile
	places     map[string]domain.Place
	slots      []domain.Slot
	nextSlotID int64
	records    []domain.Record
	suppressed map[int64]bool
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{
		profiles:   make(map[int64]domain.Profile),
		places:     make(map[string]domain.Place),
		suppressed: make(map[int64]bool),
	}
}

func (m *MemoryRepo) Close() error { return nil }

func (m *MemoryRepo) GetProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepo) SaveProfile(_ context.Context, p *domain.Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if old, ok := m.profiles[p.UserID]; ok {
		cp.CreatedAt = old.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.profiles[p.UserID] = cp
	return nil
}

func (m *MemoryRepo) ListProfiles(_ context.Context) ([]domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res, nil
}

func (m *MemoryRepo) ListPlaces(_ context.Context) ([]domain.Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Place, 0, len(m.places))
	for _, p := range m.places {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return strings.ToLower(res[i].Key) < strings.ToLower(res[j].Key) })
	return res, nil
}

func (m *MemoryRepo) GetPlace(_ context.Context, key string) (*domain.Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.places[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepo) UpsertPlace(_ context.Context, p domain.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[p.Key] = p
	return nil
}

func (m *MemoryRepo) DeletePlace(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.places[key]; !ok {
		return ErrNotFound
	}
	delete(m.places, key)
	kept := m.slots[:0]
	for _, s := range m.slots {
		if s.PlaceKey != key {
			kept = append(kept, s)
		}
	}
	m.slots = kept
	return nil
}

func (m *MemoryRepo) ListSlots(_ context.Context, wd domain.Weekday) ([]domain.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Slot
	for _, s := range m.slots {
		if s.Weekday == wd {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *MemoryRepo) AddSlot(_ context.Context, s domain.Slot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.places[s.PlaceKey]; !ok {
		return 0, errors.New("foreign key: unknown place " + s.PlaceKey)
	}
	m.nextSlotID++
	s.ID = m.nextSlotID
	m.slots = append(m.slots, s)
	return s.ID, nil
}

func (m *MemoryRepo) DeleteSlot(_ context.Context, wd domain.Weekday, placeKey string, startM int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.slots[:0]
	removed := 0
	for _, s := range m.slots {
		if s.Weekday == wd && s.PlaceKey == placeKey && s.StartM == startM {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.slots = kept
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryRepo) ReplaceSchedule(_ context.Context, places []domain.Place, slots []domain.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]domain.Place, len(places))
	for _, p := range places {
		next[p.Key] = p
	}
	var nextSlots []domain.Slot
	id := m.nextSlotID
	for _, s := range slots {
		if _, ok := next[s.PlaceKey]; !ok {
			return errors.New("foreign key: unknown place " + s.PlaceKey)
		}
		id++
		s.ID = id
		nextSlots = append(nextSlots, s)
	}
	m.places, m.slots, m.nextSlotID = next, nextSlots, id
	return nil
}

func (m *MemoryRepo) AppendRecord(_ context.Context, r *domain.Record) error {
	if r == nil {
		return errors.New("nil record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func (m *MemoryRepo) QueryRecords(_ context.Context, q RecordQuery) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Record
	for _, r := range m.records {
		if q.Date != "" && r.Date != q.Date {
			continue
		}
		if q.PlaceKey != "" && r.PlaceKey != q.PlaceKey {
			continue
		}
		if q.Action != "" && r.Action != q.Action {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *MemoryRepo) IsSuppressed(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.suppressed[userID], nil
}

func (m *MemoryRepo) SetSuppressed(_ context.Context, userID int64, suppressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if suppressed {
		m.suppressed[userID] = true
	} else {
		delete(m.suppressed, userID)
	}
	return nil
}

var (
	_ Repo = (*MemoryRepo)(nil)
	_ Repo = (*SQLiteRepo)(nil)
)
