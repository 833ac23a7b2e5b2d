package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLocation   = errors.New("invalid location")
	ErrInvalidSchedule   = errors.New("invalid schedule")
	ErrPlaceNotFound     = errors.New("place not found")
	ErrProtectedPlace    = errors.New("place is protected")
	ErrForwardedLocation = errors.New("forwarded location")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrOutsideRadius     = errors.New("outside radius")
)

// OutsideRadiusError is returned by the strict radius policy.
// It matches ErrOutsideRadius with errors.Is.
type OutsideRadiusError struct {
	DistanceM float64
	RadiusM   float64
}

func (e *OutsideRadiusError) Error() string {
	return fmt.Sprintf("outside radius: %.0fm > %.0fm", e.DistanceM, e.RadiusM)
}

func (e *OutsideRadiusError) Is(target error) bool { return target == ErrOutsideRadius }
