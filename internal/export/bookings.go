// Package export renders bookings into an Excel workbook.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"arenapanel/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	gridSheet = "Schedule"
	listSheet = "Bookings"

	// MaxDays caps the date range of a single export.
	MaxDays = 92
)

const (
	fillFree      = "#FFFFFF"
	fillPending   = "#FFEB9C"
	fillConfirmed = "#C6EFCE"
)

var listHeaders = []string{
	"ID", "Title", "Space", "Date", "Start", "End", "Status", "Description", "Updated At",
}

// FileName is the attachment name for an export of [from, to].
func FileName(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(models.DateFormat), to.Format(models.DateFormat))
}

// ValidateRange rejects inverted or oversized ranges.
func ValidateRange(from, to time.Time) error {
	if to.Before(from) {
		return errors.New("to must not be before from")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxDays {
		return fmt.Errorf("range of %d days exceeds %d", days, MaxDays)
	}
	return nil
}

// Write builds the workbook for [from, to] and writes it to w.
func Write(w io.Writer, from, to time.Time, spaces []*models.Space, bookings []*models.Booking) error {
	f, err := Workbook(from, to, spaces, bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook lays out a space-by-date schedule grid plus a flat booking list.
func Workbook(from, to time.Time, spaces []*models.Space, bookings []*models.Booking) (*excelize.File, error) {
	if err := ValidateRange(from, to); err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	index, err := f.NewSheet(gridSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeGrid(f, from, to, spaces, bookings); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeList(f, bookings); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeGrid(f *excelize.File, from, to time.Time, spaces []*models.Space, bookings []*models.Booking) error {
	_ = f.SetCellValue(gridSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format(models.DateFormat), to.Format(models.DateFormat)))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	dateCols := make(map[string]int)
	col := 2
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(gridSheet, cell, d.Format("02.01"))
		_ = f.SetCellStyle(gridSheet, cell, cell, headerStyle)
		dateCols[d.Format(models.DateFormat)] = col
		col++
	}
	lastCol := col - 1

	spaceRows := make(map[int64]int, len(spaces))
	for i, space := range spaces {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(gridSheet, cell, space.Name)
		_ = f.SetCellStyle(gridSheet, cell, cell, headerStyle)
		spaceRows[space.ID] = row
	}

	type key struct {
		row, col int
	}
	cells := make(map[key][]*models.Booking)
	for _, b := range bookings {
		row, ok := spaceRows[b.SpaceID]
		if !ok {
			continue
		}
		c, ok := dateCols[b.Date.Format(models.DateFormat)]
		if !ok {
			continue
		}
		k := key{row, c}
		cells[k] = append(cells[k], b)
	}

	styles := make(map[string]int)
	styleFor := func(fill string) (int, error) {
		if id, ok := styles[fill]; ok {
			return id, nil
		}
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		})
		styles[fill] = id
		return id, err
	}

	for row := 3; row < len(spaces)+3; row++ {
		for c := 2; c <= lastCol; c++ {
			list := cells[key{row, c}]
			sort.Slice(list, func(i, j int) bool { return list[i].StartTime < list[j].StartTime })

			cell, _ := excelize.CoordinatesToCellName(c, row)
			_ = f.SetCellValue(gridSheet, cell, cellText(list))
			style, err := styleFor(cellFill(list))
			if err != nil {
				return fmt.Errorf("create style: %w", err)
			}
			_ = f.SetCellStyle(gridSheet, cell, cell, style)
		}
	}

	_ = f.SetColWidth(gridSheet, "A", "A", 25)
	if lastCol >= 2 {
		first, _ := excelize.ColumnNumberToName(2)
		last, _ := excelize.ColumnNumberToName(lastCol)
		_ = f.SetColWidth(gridSheet, first, last, 22)
		lastCell, _ := excelize.CoordinatesToCellName(lastCol, 1)
		_ = f.MergeCell(gridSheet, "A1", lastCell)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(gridSheet, "A1", "A1", titleStyle)
	}
	return nil
}

func cellText(list []*models.Booking) string {
	if len(list) == 0 {
		return "Free"
	}
	var sb strings.Builder
	for i, b := range list {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s %s (%s)", b.Range(), b.Title, b.Status)
	}
	return sb.String()
}

// cellFill is white without active bookings, yellow while any is pending and
// green once all are confirmed.
func cellFill(list []*models.Booking) string {
	active := 0
	for _, b := range list {
		if !b.IsActive() {
			continue
		}
		active++
		if b.Status == models.BookingPending {
			return fillPending
		}
	}
	if active == 0 {
		return fillFree
	}
	return fillConfirmed
}

func writeList(f *excelize.File, bookings []*models.Booking) error {
	if _, err := f.NewSheet(listSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(listSheet, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(listHeaders), 1)
		_ = f.SetCellStyle(listSheet, "A1", last, bold)
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID, b.Title, b.SpaceName, b.Date.Format(models.DateFormat),
			b.StartTime.String(), b.EndTime.String(), string(b.Status), b.Description,
			b.UpdatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(listSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(listSheet, "A", "A", 8)
	_ = f.SetColWidth(listSheet, "B", "C", 25)
	_ = f.SetColWidth(listSheet, "D", "G", 12)
	_ = f.SetColWidth(listSheet, "H", "H", 40)
	_ = f.SetColWidth(listSheet, "I", "I", 18)
	return nil
}
