package inspections

import (
	"time"

	"github.com/google/uuid"
)

// DeficiencyStatus tracks remediation of a deficiency.
type DeficiencyStatus string

const (
	DeficiencyOpen     DeficiencyStatus = "open"
	DeficiencyResolved DeficiencyStatus = "resolved"
	DeficiencyVerified DeficiencyStatus = "verified"
)

func (s DeficiencyStatus) Valid() bool {
	return s == DeficiencyOpen || s == DeficiencyResolved || s == DeficiencyVerified
}

// DefaultResponsibility is assigned when a failed item names no party.
const DefaultResponsibility = "owner"

// Remediation windows.
const (
	EmergencyWindow = 24 * time.Hour
	StandardWindow  = 30 * 24 * time.Hour
)

// Deficiency is the derived record of one FAIL item. The authoritative
// state is the checklist inside the inspection.
type Deficiency struct {
	ID             string           `json:"id"`
	AgencyID       string           `json:"agency_id"`
	InspectionID   string           `json:"inspection_id"`
	ItemID         string           `json:"item_id"`
	SectionID      string           `json:"section_id"`
	Description    string           `json:"description"`
	Responsibility string           `json:"responsibility"`
	Is24Hour       bool             `json:"is_24hour"`
	Status         DeficiencyStatus `json:"status"`
	DueDate        time.Time        `json:"due_date"`
	ResolvedDate   *time.Time       `json:"resolved_date,omitempty"`
	Photos         []string         `json:"photos,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// DueDate applies the remediation policy to an extraction time.
func DueDate(at time.Time, emergency bool) time.Time {
	if emergency {
		return at.Add(EmergencyWindow)
	}
	return at.Add(StandardWindow)
}

var deficiencyNamespace = uuid.MustParse("6f1c1c3e-4d0b-4f6e-9a59-3f0f1f4f5d21")

// DeficiencyID is stable per (inspection, section, item) so regenerated rows
// keep their identity.
func DeficiencyID(inspectionID, sectionID, itemID string) string {
	return uuid.NewSHA1(deficiencyNamespace, []byte(inspectionID+"/"+sectionID+"/"+itemID)).String()
}
