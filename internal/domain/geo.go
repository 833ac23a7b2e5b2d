package domain

import (
	"fmt"
	"math"
	"time"
)

// EarthRadiusM is the mean Earth radius used by Distance.
const EarthRadiusM = 6371000.0

// Distance returns the great-circle (haversine) distance in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dlmb := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dlmb/2)*math.Sin(dlmb/2)
	// rounding can push a just outside [0, 1] near antipodes
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// WithinRadius is inclusive: a reading exactly on the edge is inside.
func WithinRadius(distanceM, radiusM float64) bool {
	return distanceM <= radiusM
}

// ValidateCoords rejects NaN and out-of-range magnitudes.
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: not a number", ErrInvalidLocation)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %.6f out of range", ErrInvalidLocation, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %.6f out of range", ErrInvalidLocation, lon)
	}
	return nil
}

// EvaluatePunctuality classifies now against the slot at minute precision.
// A check-in is on time up to and including slot start + grace.
// Check-out timing depends on the checkout policy; nil means "not evaluated".
func EvaluatePunctuality(now time.Time, slot Slot, graceMin int, action Action, checkout CheckoutPolicy) *bool {
	if slot.Free {
		return nil
	}
	nowM := MinuteOfDay(now)
	switch action {
	case ActionIn:
		return Bool(nowM <= slot.StartM+graceMin)
	case ActionOut:
		if checkout == CheckoutAfterEnd {
			return Bool(nowM >= slot.EndM)
		}
	}
	return nil
}

// Verdict is the outcome of evaluating one reading.
type Verdict struct {
	DistanceM  *float64
	RadiusM    float64
	InRadius   *bool
	OnTime     *bool
	Verifiable bool // false when the place has no coordinates
}
