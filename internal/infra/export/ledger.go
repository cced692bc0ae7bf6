package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

const SheetName = "Deficiencies"

var headers = []string{
	"Deficiency ID", "Inspection ID", "Section", "Item", "Description",
	"Responsibility", "24 Hour", "Status", "Due Date", "Resolved Date", "Photos",
}

var columnWidths = []float64{38, 38, 18, 18, 48, 16, 9, 11, 20, 20, 40}

// Workbook renders the deficiency ledger as an xlsx document.
func Workbook(ds []*domain.Deficiency, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	urgentStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "#C00000"}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create urgent style: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, d := range ds {
		row := i + 2
		resolved := ""
		if d.ResolvedDate != nil {
			resolved = d.ResolvedDate.UTC().Format(time.RFC3339)
		}
		urgent := "No"
		if d.Is24Hour {
			urgent = "Yes"
		}
		values := []any{
			d.ID, d.InspectionID, d.SectionID, d.ItemID, d.Description,
			d.Responsibility, urgent, string(d.Status), d.DueDate.UTC().Format(time.RFC3339), resolved,
			strings.Join(d.Photos, "\n"),
		}
		for col, v := range values {
			if err := setCellValue(f, SheetName, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
		if d.Is24Hour {
			cell, _ := excelize.CoordinatesToCellName(7, row)
			if err := f.SetCellStyle(SheetName, cell, cell, urgentStyle); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set urgent style: %w", err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Deficiency ledger",
		Created: generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set properties: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
