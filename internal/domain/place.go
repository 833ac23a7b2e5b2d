package domain

import (
	"fmt"
	"strings"
)

// Place is a location staff check in at. Coordinates are optional; without them
// the geofence cannot be evaluated.
type Place struct {
	Key             string
	Name            string
	Lat             *float64
	Lon             *float64
	RadiusM         float64
	AlwaysAvailable bool // no schedule required, check-in allowed at any time
}

// HasCoords reports whether both coordinates are configured.
func (p Place) HasCoords() bool { return p.Lat != nil && p.Lon != nil }

// DisplayName falls back to the key when no name is set.
func (p Place) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return p.Key
	}
	return p.Name
}

// Validate checks the place invariants.
func (p Place) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("%w: empty place key", ErrInvalidSchedule)
	}
	if (p.Lat == nil) != (p.Lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidLocation)
	}
	if p.HasCoords() {
		if err := ValidateCoords(*p.Lat, *p.Lon); err != nil {
			return err
		}
		if p.RadiusM <= 0 {
			return fmt.Errorf("%w: radius must be positive", ErrInvalidLocation)
		}
	}
	return nil
}

// Float is a small helper for optional coordinates.
func Float(v float64) *float64 { return &v }
