package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses "HH:MM" (also "H:MM") into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[1]) != 2 || parts[0] == "" || len(parts[0]) > 2 {
		return 0, fmt.Errorf("%w: expected HH:MM, got %q", ErrInvalidSchedule, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", ErrInvalidSchedule, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", ErrInvalidSchedule, s)
	}
	return h*60 + m, nil
}

// ParseWindow parses "HH:MM–HH:MM" or "HH:MM-HH:MM". Windows never span midnight.
func ParseWindow(s string) (startM, endM int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty window", ErrInvalidSchedule)
	}
	sep := "–"
	if strings.Contains(s, "-") && !strings.Contains(s, "–") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected HH:MM–HH:MM", ErrInvalidSchedule)
	}
	if startM, err = ParseClock(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	if endM, err = ParseClock(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	if startM >= endM {
		return 0, 0, fmt.Errorf("%w: start must be before end", ErrInvalidSchedule)
	}
	return startM, endM, nil
}

var weekdayTokens = map[string]Weekday{
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,
	"sun": Sunday, "sunday": Sunday,
}

// ParseWeekday accepts an index 0..6 (Monday first) or an English day name.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		wd := Weekday(n)
		if !wd.Valid() {
			return 0, fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, n)
		}
		return wd, nil
	}
	if wd, ok := weekdayTokens[s]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, s)
}

// ParseCoordinate parses a decimal degree; a comma decimal separator is accepted.
func ParseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidLocation, s)
	}
	return v, nil
}

// ParseRadius parses a positive radius in meters. Empty input yields def.
func ParseRadius(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: radius must be a positive number", ErrInvalidLocation)
	}
	return v, nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (*time.Location, error) {
	return time.LoadLocation(tz)
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// MinuteOfDay returns minutes since midnight of t in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
