package adapthttp

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"weighttracking/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var detailedViewHeader = []string{
	"Room",
	"Last Name",
	"First Name",
	"Weight",
	"Reweighed",
	"Refused",
	"Not In Room",
	"Daily Wts",
	"Show Alert",
	"Scale Type",
	"Final",
}

var detailedViewWidths = []float64{8, 20, 20, 12, 11, 10, 12, 10, 11, 14, 8}

// detailedViewWorkbook renders the detailed view of date as an xlsx file,
// with weights converted to unit.
func detailedViewWorkbook(date domain.Date, rows []domain.DetailedRow, unit string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheetName := date.String()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(detailedViewHeader))
	for i, h := range detailedViewHeader {
		header[i] = h
	}
	header[3] = fmt.Sprintf("Weight (%s)", unit)
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range detailedViewWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			r.RoomNum,
			r.LastName,
			r.FirstName,
			domain.ConvertWeight(r.Weight, domain.BaseUnit, unit),
			yesNo(r.Reweighed),
			yesNo(r.Refused),
			yesNo(r.NotInRoom),
			yesNo(r.DailyWts),
			yesNo(r.ShowAlert),
			r.ScaleType,
			yesNo(r.Final),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
