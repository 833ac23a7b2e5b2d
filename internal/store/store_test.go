package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// repos returns both implementations so every test covers the same contract.
func repos(t *testing.T) map[string]Repo {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Repo{"sqlite": sq, "memory": NewMemory()}
}

func TestRepo_ProfilesAndSuppression(t *testing.T) {
	ctx := context.Background()
	for name, r := range repos(t) {
		if _, err := r.GetProfile(ctx, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", name, err)
		}
		if err := r.SaveProfile(ctx, &domain.Profile{UserID: 1, Name: "Aziz Azimov"}); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		if err := r.SaveProfile(ctx, &domain.Profile{UserID: 1, Name: "Aziz Azimov", Phone: "+998901234567"}); err != nil {
			t.Fatalf("%s: update: %v", name, err)
		}
		p, err := r.GetProfile(ctx, 1)
		if err != nil || p.Phone != "+998901234567" {
			t.Fatalf("%s: got %+v, %v", name, p, err)
		}

		if s, _ := r.IsSuppressed(ctx, 1); s {
			t.Fatalf("%s: new user must not be suppressed", name)
		}
		_ = r.SetSuppressed(ctx, 1, true)
		_ = r.SetSuppressed(ctx, 1, true)
		if s, _ := r.IsSuppressed(ctx, 1); !s {
			t.Fatalf("%s: expected suppressed", name)
		}
		_ = r.SetSuppressed(ctx, 1, false)
		if s, _ := r.IsSuppressed(ctx, 1); s {
			t.Fatalf("%s: expected resumed", name)
		}
	}
}

func TestRepo_DeletePlaceCascades(t *testing.T) {
	ctx := context.Background()
	for name, r := range repos(t) {
		_ = r.UpsertPlace(ctx, domain.Place{Key: "Riverside", Name: "Riverside", Lat: domain.Float(41.3), Lon: domain.Float(69.3), RadiusM: 200})
		_ = r.UpsertPlace(ctx, domain.Place{Key: "Annex", Name: "Annex", RadiusM: 200})
		for _, s := range []domain.Slot{
			{Weekday: domain.Monday, StartM: 540, EndM: 600, PlaceKey: "Riverside"},
			{Weekday: domain.Monday, StartM: 600, EndM: 660, PlaceKey: "Annex"},
			{Weekday: domain.Tuesday, StartM: 540, EndM: 600, PlaceKey: "Riverside"},
		} {
			if _, err := r.AddSlot(ctx, s); err != nil {
				t.Fatalf("%s: add slot: %v", name, err)
			}
		}

		if err := r.DeletePlace(ctx, "Riverside"); err != nil {
			t.Fatalf("%s: delete: %v", name, err)
		}
		for _, wd := range []domain.Weekday{domain.Monday, domain.Tuesday} {
			slots, _ := r.ListSlots(ctx, wd)
			for _, s := range slots {
				if s.PlaceKey == "Riverside" {
					t.Fatalf("%s: slot of deleted place survived: %+v", name, s)
				}
			}
		}
		if slots, _ := r.ListSlots(ctx, domain.Monday); len(slots) != 1 {
			t.Fatalf("%s: want 1 Monday slot left, got %d", name, len(slots))
		}
		if err := r.DeletePlace(ctx, "Riverside"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: second delete want ErrNotFound, got %v", name, err)
		}
	}
}

func TestRepo_PlaceRoundTripKeepsOptionalCoords(t *testing.T) {
	ctx := context.Background()
	for name, r := range repos(t) {
		_ = r.UpsertPlace(ctx, domain.Place{Key: "Annex", Name: "Annex", RadiusM: 150})
		_ = r.UpsertPlace(ctx, domain.Place{Key: "SNR School", Name: "Office", Lat: domain.Float(41.322921), Lon: domain.Float(69.277808), RadiusM: 200, AlwaysAvailable: true})

		p, err := r.GetPlace(ctx, "Annex")
		if err != nil || p.HasCoords() || p.RadiusM != 150 {
			t.Fatalf("%s: annex %+v %v", name, p, err)
		}
		p, err = r.GetPlace(ctx, "SNR School")
		if err != nil || !p.HasCoords() || *p.Lat != 41.322921 || !p.AlwaysAvailable {
			t.Fatalf("%s: office %+v %v", name, p, err)
		}
		places, _ := r.ListPlaces(ctx)
		if len(places) != 2 || places[0].Key != "Annex" {
			t.Fatalf("%s: unexpected order %+v", name, places)
		}
	}
}

func TestRepo_RecordsQuery(t *testing.T) {
	ctx := context.Background()
	for name, r := range repos(t) {
		base := domain.Record{
			UserID: 1, Name: "Aziz Azimov", PlaceKey: "Riverside", PlaceName: "Riverside",
			Date: "2025-05-05", Time: "09:05", Weekday: "Monday", SlotStart: "09:00", SlotEnd: "10:00",
			Lat: 41.3, Lon: 69.3, DistanceM: domain.Float(0), InRadius: domain.Bool(true), OnTime: domain.Bool(true),
			CreatedAt: time.Date(2025, 5, 5, 4, 5, 0, 0, time.UTC),
		}
		in := base
		in.ID, in.Action = "a", domain.ActionIn
		out := base
		out.ID, out.Action, out.Time, out.OnTime = "b", domain.ActionOut, "10:01", nil
		out.CreatedAt = base.CreatedAt.Add(time.Hour)
		other := base
		other.ID, other.Action, other.Date = "c", domain.ActionIn, "2025-05-06"
		for _, rec := range []domain.Record{in, out, other} {
			rec := rec
			if err := r.AppendRecord(ctx, &rec); err != nil {
				t.Fatalf("%s: append: %v", name, err)
			}
		}

		got, err := r.QueryRecords(ctx, RecordQuery{Date: "2025-05-05", PlaceKey: "Riverside", Action: domain.ActionIn})
		if err != nil || len(got) != 1 || got[0].ID != "a" {
			t.Fatalf("%s: got %+v %v", name, got, err)
		}
		if got[0].InRadius == nil || !*got[0].InRadius || got[0].DistanceM == nil {
			t.Fatalf("%s: verdicts lost: %+v", name, got[0])
		}
		all, _ := r.QueryRecords(ctx, RecordQuery{Date: "2025-05-05"})
		if len(all) != 2 || all[1].OnTime != nil {
			t.Fatalf("%s: want 2 records with nil checkout verdict, got %+v", name, all)
		}
	}
}

func TestRepo_ReplaceScheduleKeepsSlotOrder(t *testing.T) {
	ctx := context.Background()
	for name, r := range repos(t) {
		_ = r.UpsertPlace(ctx, domain.Place{Key: "Old", Name: "Old", RadiusM: 200})
		places := []domain.Place{{Key: "A", Name: "A", RadiusM: 100}, {Key: "B", Name: "B", RadiusM: 100}}
		slots := []domain.Slot{
			{Weekday: domain.Friday, StartM: 600, EndM: 660, PlaceKey: "B"},
			{Weekday: domain.Friday, StartM: 600, EndM: 700, PlaceKey: "A"},
		}
		if err := r.ReplaceSchedule(ctx, places, slots); err != nil {
			t.Fatalf("%s: replace: %v", name, err)
		}
		if _, err := r.GetPlace(ctx, "Old"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: old place should be gone", name)
		}
		got, _ := r.ListSlots(ctx, domain.Friday)
		if len(got) != 2 || got[0].PlaceKey != "B" || got[1].PlaceKey != "A" {
			t.Fatalf("%s: order lost: %+v", name, got)
		}
	}
}
