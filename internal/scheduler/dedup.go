package scheduler

import (
	"sync"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// slotKey identifies one slot occurrence on one date.
type slotKey struct {
	Date    string
	Weekday domain.Weekday
	Place   string
	StartM  int
}

// dedup remembers which slot occurrences were already handled. Keys from
// earlier dates are dropped whenever the date rotates.
type dedup struct {
	mu   sync.Mutex
	date string
	seen map[slotKey]struct{}
}

func newDedup() *dedup { return &dedup{seen: make(map[slotKey]struct{})} }

// mark records k and reports whether it was new.
func (d *dedup) mark(k slotKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k.Date != d.date {
		d.date = k.Date
		d.seen = make(map[slotKey]struct{})
	}
	if _, ok := d.seen[k]; ok {
		return false
	}
	d.seen[k] = struct{}{}
	return true
}

func (d *dedup) has(k slotKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[k]
	return ok && k.Date == d.date
}
