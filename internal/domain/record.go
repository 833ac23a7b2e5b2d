package domain

import (
	"fmt"
	"time"
)

// Action is the kind of attendance mark.
type Action string

const (
	ActionIn  Action = "in"
	ActionOut Action = "out"
)

// ParseAction accepts "in" or "out".
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionIn, ActionOut:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func (a Action) Label() string {
	if a == ActionOut {
		return "Check-out"
	}
	return "Check-in"
}

// Reading is a location submitted by a user.
type Reading struct {
	Lat       float64
	Lon       float64
	Forwarded bool // relayed message rather than a live share from the device
}

// Date and time layouts used in records.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Record is an append-only attendance entry.
// Nil pointers mean "not evaluated" (no coordinates, timing ignored).
type Record struct {
	ID        string
	UserID    int64
	Name      string
	Phone     string
	Action    Action
	PlaceKey  string
	PlaceName string
	Date      string // YYYY-MM-DD, local
	Time      string // HH:MM, local
	Weekday   string
	SlotStart string
	SlotEnd   string
	SlotFree  bool
	Lat       float64
	Lon       float64
	DistanceM *float64
	InRadius  *bool
	OnTime    *bool
	Notes     string
	CreatedAt time.Time
}

// MinuteOfDay returns the record's wall-clock minute, or -1 if Time is malformed.
func (r Record) MinuteOfDay() int {
	m, err := ParseClock(r.Time)
	if err != nil {
		return -1
	}
	return m
}

// Bool is a small helper for optional verdicts.
func Bool(v bool) *bool { return &v }
