package inspections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
)

func passItem(id string) Item { return Item{ID: id, Label: id, Status: ItemPass} }

func baseChecklist() Checklist {
	return Checklist{Sections: []Section{
		{ID: SectionLivingRoom, Items: []Item{passItem("walls")}},
		{ID: SectionKitchen, Items: []Item{passItem("stove"), passItem("sink")}},
		{ID: SectionBathroom, Items: []Item{passItem("toilet")}},
		{ID: SectionHealthSafety, Items: []Item{passItem("smoke_detector"), passItem("lead_paint")}},
	}}
}

func violations(t *testing.T, err error) []errs.Violation {
	t.Helper()
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Violations
}

func TestValidateChecklist_Accepts(t *testing.T) {
	c := baseChecklist()
	c.Sections[1].Items[0].Status = " fail "
	c.Sections[1].Items[0].Comment = "  burner broken "

	out, err := ValidateChecklist(c, ValidateOptions{YearBuilt: 1960, RequireComplete: true})
	require.NoError(t, err)
	assert.Equal(t, ItemFail, out.Sections[1].Items[0].Status)
	assert.Equal(t, "burner broken", out.Sections[1].Items[0].Comment)
}

func TestValidateChecklist_Shape(t *testing.T) {
	_, err := ValidateChecklist(Checklist{}, ValidateOptions{})
	assert.Equal(t, "sections", violations(t, err)[0].Field)

	c := baseChecklist()
	c.Sections[0].Items[0].Status = "MAYBE"
	v := violations(t, mustFail(t, c, ValidateOptions{}))
	assert.Equal(t, "living_room.walls.status", v[0].Field)

	c = baseChecklist()
	c.Sections[2].ID = SectionKitchen
	v = violations(t, mustFail(t, c, ValidateOptions{}))
	assert.Contains(t, v[0].Reason, "duplicate section")
}

func TestValidateChecklist_MandatorySections(t *testing.T) {
	c := baseChecklist()
	c.Sections = c.Sections[:3]
	v := violations(t, mustFail(t, c, ValidateOptions{}))
	require.Len(t, v, 1)
	assert.Contains(t, v[0].Reason, SectionHealthSafety)
}

func TestValidateChecklist_Completeness(t *testing.T) {
	c := baseChecklist()
	c.Sections[0].Items[0].Status = ItemPending

	_, err := ValidateChecklist(c, ValidateOptions{})
	assert.NoError(t, err, "pending items are allowed while the inspection is open")

	v := violations(t, mustFail(t, c, ValidateOptions{RequireComplete: true}))
	assert.Equal(t, "living_room.walls", v[0].Field)
}

func TestValidateChecklist_FailRules(t *testing.T) {
	c := baseChecklist()
	c.Sections[3].Items[0] = Item{ID: "smoke_detector", Status: ItemFail, Is24Hour: true}

	v := violations(t, mustFail(t, c, ValidateOptions{}))
	require.Len(t, v, 2)
	assert.Equal(t, "health_safety.smoke_detector.comment", v[0].Field)
	assert.Equal(t, "health_safety.smoke_detector.responsibility", v[1].Field)
}

func TestValidateChecklist_LeadPaint(t *testing.T) {
	c := baseChecklist()
	c.Sections[3].Items[1].Status = ItemPending

	_, err := ValidateChecklist(c, ValidateOptions{YearBuilt: 1990, RequireComplete: false})
	assert.NoError(t, err)

	v := violations(t, mustFail(t, c, ValidateOptions{YearBuilt: 1970, RequireComplete: true}))
	last := v[len(v)-1]
	assert.Contains(t, last.Reason, "lead-paint")

	c.Sections[3].Items[1].Status = ItemNotApplicable
	_, err = ValidateChecklist(c, ValidateOptions{YearBuilt: 1970, RequireComplete: true})
	assert.NoError(t, err)
}

func mustFail(t *testing.T, c Checklist, opts ValidateOptions) error {
	t.Helper()
	_, err := ValidateChecklist(c, opts)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	return err
}

func TestExtractDeficiencies(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := baseChecklist()
	c.Sections[1].Items[1] = Item{ID: "sink", Label: "Sink", Status: ItemFail, Comment: "leaking"}
	c.Sections[3].Items[0] = Item{ID: "smoke_detector", Label: "Smoke detector", Status: ItemFail, Comment: "missing", Is24Hour: true, Responsibility: "tenant"}
	c.Sections[0].Items[0].Status = ItemInconclusive

	ds := ExtractDeficiencies("agency-1", "insp-1", c, at)
	require.Len(t, ds, 2)

	sink := ds[0]
	assert.Equal(t, DeficiencyID("insp-1", SectionKitchen, "sink"), sink.ID)
	assert.Equal(t, "Sink: leaking", sink.Description)
	assert.Equal(t, DefaultResponsibility, sink.Responsibility)
	assert.Equal(t, DeficiencyOpen, sink.Status)
	assert.WithinDuration(t, at.Add(30*24*time.Hour), sink.DueDate, time.Second)

	smoke := ds[1]
	assert.True(t, smoke.Is24Hour)
	assert.Equal(t, "tenant", smoke.Responsibility)
	assert.WithinDuration(t, at.Add(24*time.Hour), smoke.DueDate, time.Second)
}

func TestExtractDeficiencies_NoFailures(t *testing.T) {
	assert.Empty(t, ExtractDeficiencies("a", "i", baseChecklist(), time.Now()))
}

func TestDeficiencyID_Stable(t *testing.T) {
	a := DeficiencyID("insp", "kitchen", "sink")
	assert.Equal(t, a, DeficiencyID("insp", "kitchen", "sink"))
	assert.NotEqual(t, a, DeficiencyID("insp", "kitchen", "stove"))
	assert.NotEqual(t, a, DeficiencyID("other", "kitchen", "sink"))
}

func TestDueWithin(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ago := func(years, days int) *time.Time {
		d := now.AddDate(-years, 0, -days)
		return &d
	}

	assert.True(t, DueWithin(Unit{}, now, 0), "never inspected")
	assert.True(t, DueWithin(Unit{Frequency: FrequencyAnnual, LastInspectionDate: ago(1, 5)}, now, 0), "overdue")
	assert.True(t, DueWithin(Unit{Frequency: FrequencyAnnual, LastInspectionDate: ago(0, 340)}, now, 30))
	assert.False(t, DueWithin(Unit{Frequency: FrequencyAnnual, LastInspectionDate: ago(0, 300)}, now, 30))
	assert.False(t, DueWithin(Unit{Frequency: FrequencyBiennial, LastInspectionDate: ago(1, 0)}, now, 30))
	assert.True(t, DueWithin(Unit{Frequency: FrequencyTriennial, LastInspectionDate: ago(3, 0)}, now, 0))
}

func TestChecklistScan(t *testing.T) {
	var c Checklist
	require.NoError(t, c.Scan([]byte(`{"sections":[{"id":"kitchen","items":[{"id":"sink","status":"PASS"}]}]}`)))
	require.Len(t, c.Sections, 1)
	assert.Equal(t, ItemPass, c.Sections[0].Items[0].Status)

	require.NoError(t, c.Scan(nil))
	assert.Empty(t, c.Sections)
	assert.Error(t, c.Scan(42))
}
