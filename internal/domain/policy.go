package domain

import (
	"fmt"
	"time"
)

// RadiusPolicy decides what happens to a reading outside the geofence.
type RadiusPolicy string

const (
	RadiusPermissive RadiusPolicy = "permissive" // accept and annotate
	RadiusStrict     RadiusPolicy = "strict"     // reject, ask to retry closer
)

// CheckoutPolicy decides how check-out timing is classified.
type CheckoutPolicy string

const (
	CheckoutIgnore   CheckoutPolicy = "ignore"
	CheckoutAfterEnd CheckoutPolicy = "after_end"
)

func ParseRadiusPolicy(s string) (RadiusPolicy, error) {
	switch RadiusPolicy(s) {
	case RadiusPermissive, RadiusStrict:
		return RadiusPolicy(s), nil
	}
	return "", fmt.Errorf("unknown radius policy %q", s)
}

func ParseCheckoutPolicy(s string) (CheckoutPolicy, error) {
	switch CheckoutPolicy(s) {
	case CheckoutIgnore, CheckoutAfterEnd:
		return CheckoutPolicy(s), nil
	}
	return "", fmt.Errorf("unknown checkout policy %q", s)
}

// Policy holds the evaluation settings of one deployment.
type Policy struct {
	DefaultRadiusM float64
	GraceMinutes   int
	GraceByUser    map[int64]int
	GraceByPlace   map[string]int
	Radius         RadiusPolicy
	Checkout       CheckoutPolicy
}

// GraceFor resolves the grace period: per-user, then per-place, then global.
func (p Policy) GraceFor(userID int64, placeKey string) int {
	if g, ok := p.GraceByUser[userID]; ok {
		return g
	}
	if g, ok := p.GraceByPlace[placeKey]; ok {
		return g
	}
	return p.GraceMinutes
}

// GraceForPlace ignores per-user overrides; used where no user is involved.
func (p Policy) GraceForPlace(placeKey string) int {
	if g, ok := p.GraceByPlace[placeKey]; ok {
		return g
	}
	return p.GraceMinutes
}

// MaxGraceForPlace is the latest grace any user can get at placeKey.
func (p Policy) MaxGraceForPlace(placeKey string) int {
	g := p.GraceForPlace(placeKey)
	for _, ug := range p.GraceByUser {
		g = max(g, ug)
	}
	return g
}

// RadiusOf returns the place radius or the default one.
func (p Policy) RadiusOf(place Place) float64 {
	if place.RadiusM > 0 {
		return place.RadiusM
	}
	return p.DefaultRadiusM
}

// Evaluate runs the geofence and punctuality checks for one reading.
// Without place coordinates both checks are skipped and the verdict is unverifiable.
// It does not apply the radius policy; callers decide whether to reject.
func (p Policy) Evaluate(place Place, slot Slot, r Reading, userID int64, now time.Time, action Action) (Verdict, error) {
	if err := ValidateCoords(r.Lat, r.Lon); err != nil {
		return Verdict{}, err
	}
	v := Verdict{RadiusM: p.RadiusOf(place)}
	if place.HasCoords() {
		d := Distance(r.Lat, r.Lon, *place.Lat, *place.Lon)
		v.DistanceM = &d
		v.InRadius = Bool(WithinRadius(d, v.RadiusM))
		v.Verifiable = true
		v.OnTime = EvaluatePunctuality(now, slot, p.GraceFor(userID, place.Key), action, p.Checkout)
	}
	return v, nil
}
