// Package schedule answers "what is scheduled today" over the repository.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// Index is a repository-backed view of places and weekly slots.
type Index struct {
	repo      store.Repo
	alwaysKey string
}

// New creates an Index. alwaysKey names the configured always-available place.
func New(repo store.Repo, alwaysKey string) *Index {
	return &Index{repo: repo, alwaysKey: alwaysKey}
}

// SlotsFor returns the weekday's slots by start time; equal starts keep insertion order.
func (ix *Index) SlotsFor(ctx context.Context, wd domain.Weekday) ([]domain.Slot, error) {
	if !wd.Valid() {
		return nil, fmt.Errorf("%w: weekday %d out of range", domain.ErrInvalidSchedule, int(wd))
	}
	slots, err := ix.repo.ListSlots(ctx, wd)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].StartM < slots[j].StartM })
	return slots, nil
}

// SlotsForPlace filters SlotsFor by place.
func (ix *Index) SlotsForPlace(ctx context.Context, wd domain.Weekday, placeKey string) ([]domain.Slot, error) {
	slots, err := ix.SlotsFor(ctx, wd)
	if err != nil {
		return nil, err
	}
	res := slots[:0]
	for _, s := range slots {
		if s.PlaceKey == placeKey {
			res = append(res, s)
		}
	}
	return res, nil
}

// PlacesActiveToday returns keys of places with slots on wd, sorted, followed by
// the always-available places that are not already listed.
func (ix *Index) PlacesActiveToday(ctx context.Context, wd domain.Weekday) ([]string, error) {
	slots, err := ix.SlotsFor(ctx, wd)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var keys []string
	for _, s := range slots {
		if !seen[s.PlaceKey] {
			seen[s.PlaceKey] = true
			keys = append(keys, s.PlaceKey)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return strings.ToLower(keys[i]) < strings.ToLower(keys[j]) })

	places, err := ix.repo.ListPlaces(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range places {
		if ix.isAlways(p) && !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}
	return keys, nil
}

// Place resolves a place by key.
func (ix *Index) Place(ctx context.Context, key string) (*domain.Place, error) {
	p, err := ix.repo.GetPlace(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	if p.Key == ix.alwaysKey {
		p.AlwaysAvailable = true
	}
	return p, nil
}

// Places lists every place.
func (ix *Index) Places(ctx context.Context) ([]domain.Place, error) {
	return ix.repo.ListPlaces(ctx)
}

// AddPlace validates and stores a place (insert or update).
func (ix *Index) AddPlace(ctx context.Context, p domain.Place) error {
	p.Key = strings.TrimSpace(p.Key)
	if p.Name == "" {
		p.Name = p.Key
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return ix.repo.UpsertPlace(ctx, p)
}

// RemovePlace deletes a place and its slots. Always-available places are protected.
func (ix *Index) RemovePlace(ctx context.Context, key string) error {
	p, err := ix.Place(ctx, key)
	if err != nil {
		return err
	}
	if ix.isAlways(*p) {
		return fmt.Errorf("%w: %s", domain.ErrProtectedPlace, key)
	}
	if err := ix.repo.DeletePlace(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrPlaceNotFound, key)
		}
		return err
	}
	return nil
}

// AddSlot validates and stores a slot for an existing place.
func (ix *Index) AddSlot(ctx context.Context, s domain.Slot) (domain.Slot, error) {
	s.Free = false
	if err := s.Validate(); err != nil {
		return s, err
	}
	if _, err := ix.Place(ctx, s.PlaceKey); err != nil {
		return s, err
	}
	id, err := ix.repo.AddSlot(ctx, s)
	if err != nil {
		return s, err
	}
	s.ID = id
	return s, nil
}

// RemoveSlot deletes the slot identified by weekday, place and start.
func (ix *Index) RemoveSlot(ctx context.Context, wd domain.Weekday, placeKey string, startM int) error {
	err := ix.repo.DeleteSlot(ctx, wd, placeKey, startM)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: no slot %s %s %s", domain.ErrInvalidSchedule, wd.Short(), placeKey, domain.FormatMinutes(startM))
	}
	return err
}

// EnsureAlwaysPlace creates the configured always-available place if missing and
// keeps its flag set. Existing coordinates edited by an administrator are kept.
func (ix *Index) EnsureAlwaysPlace(ctx context.Context, p domain.Place) error {
	p.AlwaysAvailable = true
	existing, err := ix.repo.GetPlace(ctx, p.Key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ix.AddPlace(ctx, p)
	case err != nil:
		return err
	case existing.AlwaysAvailable:
		return nil
	}
	existing.AlwaysAvailable = true
	return ix.repo.UpsertPlace(ctx, *existing)
}

// IsAlwaysAvailable reports whether key names an always-available place.
func (ix *Index) IsAlwaysAvailable(ctx context.Context, key string) (bool, error) {
	p, err := ix.Place(ctx, key)
	if err != nil {
		return false, err
	}
	return ix.isAlways(*p), nil
}

func (ix *Index) isAlways(p domain.Place) bool {
	return p.AlwaysAvailable || (ix.alwaysKey != "" && p.Key == ix.alwaysKey)
}
