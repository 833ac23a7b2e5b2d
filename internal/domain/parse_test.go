package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	good := map[string]int{"00:00": 0, "09:05": 545, "9:05": 545, "23:59": 1439, " 12:30 ": 750}
	for in, want := range good {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "24:00", "12:60", "1230", "12:3", "ab:cd", "123:00"} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("ParseClock(%q) want ErrInvalidSchedule, got %v", in, err)
		}
	}
}

func TestParseWindow(t *testing.T) {
	from, to, err := ParseWindow("09:00–10:30")
	if err != nil || from != 540 || to != 630 {
		t.Fatalf("got %d %d %v", from, to, err)
	}
	from, to, err = ParseWindow("09:00-10:30")
	if err != nil || from != 540 || to != 630 {
		t.Fatalf("ascii dash: got %d %d %v", from, to, err)
	}
	if _, _, err := ParseWindow("22:00-02:00"); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("windows must not span midnight, got %v", err)
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{"0": Monday, "6": Sunday, "mon": Monday, "Friday": Friday, " SUN ": Sunday}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"7", "-1", "someday"} {
		if _, err := ParseWeekday(in); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("ParseWeekday(%q) want ErrInvalidSchedule, got %v", in, err)
		}
	}
}

func TestWeekdayOf_MondayFirst(t *testing.T) {
	// 2025-05-05 is a Monday, 2025-05-11 a Sunday
	if wd := WeekdayOf(time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)); wd != Monday {
		t.Fatalf("want Monday, got %v", wd)
	}
	if wd := WeekdayOf(time.Date(2025, time.May, 11, 12, 0, 0, 0, time.UTC)); wd != Sunday {
		t.Fatalf("want Sunday, got %v", wd)
	}
}

func TestParseCoordinateAndRadius(t *testing.T) {
	if v, err := ParseCoordinate("41,322921"); err != nil || v != 41.322921 {
		t.Fatalf("comma decimal: %v %v", v, err)
	}
	if _, err := ParseCoordinate("north"); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("want ErrInvalidLocation, got %v", err)
	}
	if v, err := ParseRadius("", 200); err != nil || v != 200 {
		t.Fatalf("blank radius should default: %v %v", v, err)
	}
	if _, err := ParseRadius("-5", 200); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("negative radius should fail, got %v", err)
	}
}

func TestSlotAndPlaceValidate(t *testing.T) {
	if err := (Slot{Weekday: Monday, StartM: 600, EndM: 600, PlaceKey: "x"}).Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("start == end must fail, got %v", err)
	}
	if err := (Place{Key: "x", Lat: Float(1), Lon: Float(1)}).Validate(); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("zero radius with coords must fail, got %v", err)
	}
	if err := (Place{Key: "x"}).Validate(); err != nil {
		t.Fatalf("place without coords is valid: %v", err)
	}
}
