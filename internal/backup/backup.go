// Package backup exports and imports the schedule (places and slots) as YAML.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

// FormatVersion is written into every export and required on import.
const FormatVersion = 1

type Document struct {
	Version    int        `yaml:"version" validate:"eq=1"`
	ExportedAt string     `yaml:"exported_at,omitempty"`
	Places     []PlaceDoc `yaml:"places" validate:"dive"`
	Slots      []SlotDoc  `yaml:"slots" validate:"dive"`
}

type PlaceDoc struct {
	Key             string   `yaml:"key" validate:"required"`
	Name            string   `yaml:"name,omitempty"`
	Lat             *float64 `yaml:"lat,omitempty" validate:"omitempty,latitude"`
	Lon             *float64 `yaml:"lon,omitempty" validate:"omitempty,longitude"`
	RadiusM         float64  `yaml:"radius_m" validate:"gt=0"`
	AlwaysAvailable bool     `yaml:"always_available,omitempty"`
}

type SlotDoc struct {
	Weekday int    `yaml:"weekday" validate:"min=0,max=6"`
	Place   string `yaml:"place" validate:"required"`
	Start   string `yaml:"start" validate:"required"`
	End     string `yaml:"end" validate:"required"`
}

// Stats summarizes an import.
type Stats struct {
	Places int
	Slots  int
}

var validate = validator.New()

// Export renders every place and every slot (Monday first, insertion order).
func Export(ctx context.Context, repo store.Repo, now time.Time) ([]byte, error) {
	places, err := repo.ListPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	doc := Document{Version: FormatVersion, ExportedAt: now.Format(time.RFC3339)}
	for _, p := range places {
		doc.Places = append(doc.Places, PlaceDoc{
			Key:             p.Key,
			Name:            p.Name,
			Lat:             p.Lat,
			Lon:             p.Lon,
			RadiusM:         p.RadiusM,
			AlwaysAvailable: p.AlwaysAvailable,
		})
	}
	for wd := domain.Monday; wd <= domain.Sunday; wd++ {
		slots, err := repo.ListSlots(ctx, wd)
		if err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		for _, s := range slots {
			doc.Slots = append(doc.Slots, SlotDoc{Weekday: int(wd), Place: s.PlaceKey, Start: s.Start(), End: s.End()})
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes and validates a document without touching storage.
func Parse(data []byte) ([]domain.Place, []domain.Slot, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%w: decode backup: %v", domain.ErrInvalidSchedule, err)
	}
	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrInvalidSchedule, describe(verrs))
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchedule, err)
	}

	places := make([]domain.Place, 0, len(doc.Places))
	known := make(map[string]bool, len(doc.Places))
	for _, pd := range doc.Places {
		p := domain.Place{
			Key:             strings.TrimSpace(pd.Key),
			Name:            pd.Name,
			Lat:             pd.Lat,
			Lon:             pd.Lon,
			RadiusM:         pd.RadiusM,
			AlwaysAvailable: pd.AlwaysAvailable,
		}
		if p.Name == "" {
			p.Name = p.Key
		}
		if err := p.Validate(); err != nil {
			return nil, nil, fmt.Errorf("place %q: %w", pd.Key, err)
		}
		if known[p.Key] {
			return nil, nil, fmt.Errorf("%w: duplicate place %q", domain.ErrInvalidSchedule, p.Key)
		}
		known[p.Key] = true
		places = append(places, p)
	}

	slots := make([]domain.Slot, 0, len(doc.Slots))
	for i, sd := range doc.Slots {
		start, err := domain.ParseClock(sd.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		end, err := domain.ParseClock(sd.End)
		if err != nil {
			return nil, nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		s := domain.Slot{Weekday: domain.Weekday(sd.Weekday), StartM: start, EndM: end, PlaceKey: strings.TrimSpace(sd.Place)}
		if err := s.Validate(); err != nil {
			return nil, nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		if !known[s.PlaceKey] {
			return nil, nil, fmt.Errorf("slot %d: %w: %s", i+1, domain.ErrPlaceNotFound, s.PlaceKey)
		}
		slots = append(slots, s)
	}
	return places, slots, nil
}

// Import replaces the whole schedule with the document. Places in keep that
// the document omits are carried over so protected places survive a restore.
func Import(ctx context.Context, repo store.Repo, data []byte, keep ...domain.Place) (Stats, error) {
	places, slots, err := Parse(data)
	if err != nil {
		return Stats{}, err
	}
	for _, k := range keep {
		found := false
		for i := range places {
			if places[i].Key == k.Key {
				places[i].AlwaysAvailable = places[i].AlwaysAvailable || k.AlwaysAvailable
				found = true
				break
			}
		}
		if !found {
			places = append(places, k)
		}
	}
	if err := repo.ReplaceSchedule(ctx, places, slots); err != nil {
		return Stats{}, fmt.Errorf("replace schedule: %w", err)
	}
	return Stats{Places: len(places), Slots: len(slots)}, nil
}

func describe(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
