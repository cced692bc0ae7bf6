package inspections

import "time"

// ExtractDeficiencies derives one open deficiency per FAIL item, in checklist
// order. It has no side effects; at is the extraction time the remediation
// window is measured from.
func ExtractDeficiencies(agencyID, inspectionID string, c Checklist, at time.Time) []Deficiency {
	var out []Deficiency
	c.Items(func(s Section, it Item) {
		if it.Status != ItemFail {
			return
		}
		resp := it.Responsibility
		if resp == "" {
			resp = DefaultResponsibility
		}
		out = append(out, Deficiency{
			ID:             DeficiencyID(inspectionID, s.ID, it.ID),
			AgencyID:       agencyID,
			InspectionID:   inspectionID,
			ItemID:         it.ID,
			SectionID:      s.ID,
			Description:    describe(it),
			Responsibility: resp,
			Is24Hour:       it.Is24Hour,
			Status:         DeficiencyOpen,
			DueDate:        DueDate(at, it.Is24Hour),
			Photos:         it.Photos,
			CreatedAt:      at,
		})
	})
	return out
}

func describe(it Item) string {
	switch {
	case it.Label == "":
		return it.Comment
	case it.Comment == "":
		return it.Label
	default:
		return it.Label + ": " + it.Comment
	}
}
