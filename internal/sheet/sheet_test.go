package sheet

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

func TestWriteRecords(t *testing.T) {
	records := []domain.Record{
		{
			ID: "a", UserID: 7, Name: "Aziz Azimov", Phone: "+998901234567", Action: domain.ActionIn,
			PlaceKey: "Riverside", PlaceName: "Riverside", Date: "2025-05-05", Time: "09:05", Weekday: "Monday",
			SlotStart: "09:00", SlotEnd: "10:00", Lat: 41.3, Lon: 69.3,
			DistanceM: domain.Float(12.5), InRadius: domain.Bool(true), OnTime: domain.Bool(false),
		},
		{
			ID: "b", UserID: 7, Name: "Aziz Azimov", Action: domain.ActionOut, PlaceName: "Annex",
			Date: "2025-05-05", Time: "10:01", Weekday: "Monday", Notes: "unverifiable: place coordinates not configured",
		},
	}
	var buf bytes.Buffer
	if err := WriteRecords(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][3] != "Aziz Azimov" || rows[1][6] != "Check-in" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[1][13] != "yes" || rows[1][14] != "no" {
		t.Fatalf("verdict cells %v", rows[1])
	}
	if rows[2][13] != "" || rows[2][15] == "" {
		t.Fatalf("nil verdicts must be blank: %v", rows[2])
	}
}
