package inspections

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
)

// LeadPaintCutoffYear: units built before this year need a lead-paint item evaluated.
const LeadPaintCutoffYear = 1978

// ValidateOptions carries the context a checklist is judged in.
type ValidateOptions struct {
	// YearBuilt of the inspected unit; zero when unknown.
	YearBuilt int
	// RequireComplete is set when the inspection is moving to complete.
	RequireComplete bool
}

// ValidateChecklist normalizes c and checks it against the structural and
// compliance rules. On any violation it returns a *errs.ValidationError and
// the caller must not apply the payload.
func ValidateChecklist(c Checklist, opts ValidateOptions) (Checklist, error) {
	norm := normalize(c)

	if v := checkShape(norm); len(v) > 0 {
		return Checklist{}, &errs.ValidationError{Violations: v}
	}

	var v []errs.Violation
	for _, id := range MandatorySections {
		if _, ok := norm.Section(id); !ok {
			v = append(v, errs.Violation{Field: "sections", Reason: fmt.Sprintf("missing mandatory section %q", id)})
		}
	}

	if opts.RequireComplete {
		norm.Items(func(s Section, it Item) {
			if it.Status == ItemPending {
				v = append(v, errs.Violation{Field: itemField(s, it), Reason: "item has not been evaluated"})
			}
		})
	}

	norm.Items(func(s Section, it Item) {
		if it.Status == ItemFail && it.Comment == "" {
			v = append(v, errs.Violation{Field: itemField(s, it) + ".comment", Reason: "failed item requires a comment"})
		}
	})

	norm.Items(func(s Section, it Item) {
		if it.Status == ItemFail && it.Is24Hour && it.Responsibility == "" {
			v = append(v, errs.Violation{Field: itemField(s, it) + ".responsibility", Reason: "24-hour failure requires a responsible party"})
		}
	})

	if opts.RequireComplete && opts.YearBuilt > 0 && opts.YearBuilt < LeadPaintCutoffYear && !leadPaintEvaluated(norm) {
		v = append(v, errs.Violation{Field: "sections", Reason: fmt.Sprintf("unit built in %d requires a lead-paint item to be evaluated", opts.YearBuilt)})
	}

	if len(v) > 0 {
		return Checklist{}, &errs.ValidationError{Violations: v}
	}
	return norm, nil
}

func normalize(c Checklist) Checklist {
	out := Checklist{Sections: make([]Section, 0, len(c.Sections))}
	for _, s := range c.Sections {
		ns := Section{
			ID:    strings.TrimSpace(s.ID),
			Title: strings.TrimSpace(s.Title),
			Items: make([]Item, 0, len(s.Items)),
		}
		for _, it := range s.Items {
			status := ItemStatus(strings.ToUpper(strings.TrimSpace(string(it.Status))))
			if status == "" {
				status = ItemPending
			}
			ns.Items = append(ns.Items, Item{
				ID:             strings.TrimSpace(it.ID),
				Label:          strings.TrimSpace(it.Label),
				Status:         status,
				Comment:        strings.TrimSpace(it.Comment),
				Is24Hour:       it.Is24Hour,
				Responsibility: strings.TrimSpace(it.Responsibility),
				Photos:         it.Photos,
			})
		}
		out.Sections = append(out.Sections, ns)
	}
	return out
}

func checkShape(c Checklist) []errs.Violation {
	var v []errs.Violation
	if len(c.Sections) == 0 {
		return []errs.Violation{{Field: "sections", Reason: "checklist has no sections"}}
	}
	seen := map[string]bool{}
	for i, s := range c.Sections {
		if s.ID == "" {
			v = append(v, errs.Violation{Field: fmt.Sprintf("sections[%d].id", i), Reason: "section id is required"})
			continue
		}
		if seen[s.ID] {
			v = append(v, errs.Violation{Field: fmt.Sprintf("sections[%d].id", i), Reason: fmt.Sprintf("duplicate section %q", s.ID)})
		}
		seen[s.ID] = true
		if len(s.Items) == 0 {
			v = append(v, errs.Violation{Field: s.ID, Reason: "section has no items"})
		}
		items := map[string]bool{}
		for j, it := range s.Items {
			if it.ID == "" {
				v = append(v, errs.Violation{Field: fmt.Sprintf("%s.items[%d].id", s.ID, j), Reason: "item id is required"})
				continue
			}
			if items[it.ID] {
				v = append(v, errs.Violation{Field: s.ID + "." + it.ID, Reason: "duplicate item id"})
			}
			items[it.ID] = true
			if !it.Status.Valid() {
				v = append(v, errs.Violation{Field: s.ID + "." + it.ID + ".status", Reason: fmt.Sprintf("unknown status %q", it.Status)})
			}
		}
	}
	return v
}

func leadPaintEvaluated(c Checklist) bool {
	found := false
	c.Items(func(s Section, it Item) {
		if found || it.Status == ItemPending {
			return
		}
		if isLeadPaint(s.ID) || isLeadPaint(it.ID) || isLeadPaint(it.Label) {
			found = true
		}
	})
	return found
}

func isLeadPaint(s string) bool {
	return strings.Contains(strings.ToLower(s), "lead")
}

func itemField(s Section, it Item) string {
	return s.ID + "." + it.ID
}
