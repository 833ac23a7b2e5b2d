// Package sheet renders attendance records as an .xlsx workbook.
package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

const SheetName = "Attendance"

var header = []any{
	"Date", "Time", "Weekday", "Name", "Phone", "User ID", "Action", "Place",
	"Slot start", "Slot end", "Lat", "Lon", "Distance, m", "In radius", "On time", "Notes", "Record ID",
}

// WriteRecords writes one header row and one row per record to w.
func WriteRecords(w io.Writer, records []domain.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.Date, r.Time, r.Weekday, r.Name, r.Phone, r.UserID, r.Action.Label(), r.PlaceName,
			r.SlotStart, r.SlotEnd, r.Lat, r.Lon, floatCell(r.DistanceM), yesNo(r.InRadius), yesNo(r.OnTime), r.Notes, r.ID,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "Q", 14); err != nil {
		return err
	}
	return f.Write(w)
}

func floatCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "yes"
	default:
		return "no"
	}
}
