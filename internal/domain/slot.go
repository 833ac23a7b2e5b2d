package domain

import (
	"fmt"
	"time"
)

// Weekday counts from Monday (0) to Sunday (6).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var (
	weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	weekdayShort = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

// WeekdayOf converts t (already in the local zone) to a Weekday.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// Short returns a three-letter label.
func (w Weekday) Short() string {
	if !w.Valid() {
		return "?"
	}
	return weekdayShort[w]
}

// Full-day window used for always-available places.
const (
	FullDayStartM = 0
	FullDayEndM   = 23*60 + 59
)

// Slot is a scheduled time window at a place on a weekday.
// StartM and EndM are minutes since local midnight.
type Slot struct {
	ID       int64 // storage order, used as the insertion tie-break
	Weekday  Weekday
	StartM   int
	EndM     int
	PlaceKey string
	Free     bool // synthetic full-day slot of an always-available place
}

// FullDaySlot builds the synthetic slot offered for always-available places.
func FullDaySlot(wd Weekday, placeKey string) Slot {
	return Slot{Weekday: wd, StartM: FullDayStartM, EndM: FullDayEndM, PlaceKey: placeKey, Free: true}
}

func (s Slot) Start() string { return FormatMinutes(s.StartM) }
func (s Slot) End() string   { return FormatMinutes(s.EndM) }

// Label renders "HH:MM–HH:MM".
func (s Slot) Label() string { return s.Start() + "–" + s.End() }

// Validate checks the slot invariants.
func (s Slot) Validate() error {
	if !s.Weekday.Valid() {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, int(s.Weekday))
	}
	if s.PlaceKey == "" {
		return fmt.Errorf("%w: slot without place", ErrInvalidSchedule)
	}
	if s.StartM < 0 || s.EndM > FullDayEndM {
		return fmt.Errorf("%w: time out of range", ErrInvalidSchedule)
	}
	if s.StartM >= s.EndM {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidSchedule, s.Start(), s.End())
	}
	return nil
}
