package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

func TestWorkbook(t *testing.T) {
	due := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ds := []*domain.Deficiency{
		{ID: "d1", InspectionID: "i1", SectionID: "kitchen", ItemID: "stove", Description: "Stove: burner broken",
			Responsibility: "owner", Is24Hour: true, Status: domain.DeficiencyOpen, DueDate: due},
		{ID: "d2", InspectionID: "i1", SectionID: "bathroom_1", ItemID: "sink", Description: "Sink: leaking",
			Responsibility: "tenant", Status: domain.DeficiencyOpen, DueDate: due, Photos: []string{"p1", "p2"}},
	}

	raw, err := Workbook(ds, due)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "d1", rows[1][0])
	assert.Equal(t, "Yes", rows[1][6])
	assert.Equal(t, "2026-03-02T10:00:00Z", rows[1][8])
	assert.Equal(t, "tenant", rows[2][5])
	assert.Equal(t, "p1\np2", rows[2][10])
}

func TestWorkbook_Empty(t *testing.T) {
	raw, err := Workbook(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
}
