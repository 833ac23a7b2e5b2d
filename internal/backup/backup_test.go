package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boringdede/Snr-Attendance/internal/domain"
	"github.com/boringdede/Snr-Attendance/internal/store"
)

func seeded(t *testing.T) *store.MemoryRepo {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemory()
	_ = repo.UpsertPlace(ctx, domain.Place{Key: "Riverside", Name: "Riverside", Lat: domain.Float(41.3), Lon: domain.Float(69.3), RadiusM: 200})
	_ = repo.UpsertPlace(ctx, domain.Place{Key: "Annex", Name: "Annex", RadiusM: 150})
	for _, s := range []domain.Slot{
		{Weekday: domain.Monday, StartM: 540, EndM: 600, PlaceKey: "Riverside"},
		{Weekday: domain.Monday, StartM: 480, EndM: 530, PlaceKey: "Annex"},
		{Weekday: domain.Saturday, StartM: 600, EndM: 660, PlaceKey: "Riverside"},
	} {
		if _, err := repo.AddSlot(ctx, s); err != nil {
			t.Fatalf("add slot: %v", err)
		}
	}
	return repo
}

func TestExportImport_RestoresSchedule(t *testing.T) {
	ctx := context.Background()
	data, err := Export(ctx, seeded(t), time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	target := store.NewMemory()
	_ = target.UpsertPlace(ctx, domain.Place{Key: "Stale", Name: "Stale", RadiusM: 10})
	office := domain.Place{Key: "SNR School", Name: "SNR School", RadiusM: 200, AlwaysAvailable: true}
	st, err := Import(ctx, target, data, office)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if st.Places != 3 || st.Slots != 3 {
		t.Fatalf("stats %+v", st)
	}
	if _, err := target.GetPlace(ctx, "Stale"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("import must replace, stale place survived")
	}
	if p, err := target.GetPlace(ctx, "SNR School"); err != nil || !p.AlwaysAvailable {
		t.Fatalf("kept place lost: %+v %v", p, err)
	}
	annex, _ := target.GetPlace(ctx, "Annex")
	if annex.HasCoords() {
		t.Fatalf("annex gained coordinates: %+v", annex)
	}
	mon, _ := target.ListSlots(ctx, domain.Monday)
	if len(mon) != 2 || mon[0].PlaceKey != "Riverside" || mon[1].Start() != "08:00" {
		t.Fatalf("monday slots %+v", mon)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad version": "version: 2\nplaces: []\nslots: []\n",
		"bad latitude": `version: 1
places:
  - {key: A, lat: 95, lon: 10, radius_m: 100}
`,
		"zero radius": `version: 1
places:
  - {key: A, radius_m: 0}
`,
		"bad weekday": `version: 1
places:
  - {key: A, radius_m: 100}
slots:
  - {weekday: 7, place: A, start: "09:00", end: "10:00"}
`,
		"start after end": `version: 1
places:
  - {key: A, radius_m: 100}
slots:
  - {weekday: 0, place: A, start: "11:00", end: "10:00"}
`,
		"unknown field": "version: 1\nplaces: []\ncolour: red\n",
		"duplicate place": `version: 1
places:
  - {key: A, radius_m: 100}
  - {key: A, radius_m: 100}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Parse([]byte(doc)); !errors.Is(err, domain.ErrInvalidSchedule) {
				t.Fatalf("want ErrInvalidSchedule, got %v", err)
			}
		})
	}

	_, _, err := Parse([]byte("version: 1\nplaces: []\nslots:\n  - {weekday: 0, place: Ghost, start: \"09:00\", end: \"10:00\"}\n"))
	if !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("unknown place: want ErrPlaceNotFound, got %v", err)
	}
}
