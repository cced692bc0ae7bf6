package inspections

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ItemStatus is the observed state of one checklist item.
type ItemStatus string

const (
	ItemPending       ItemStatus = "PENDING"
	ItemPass          ItemStatus = "PASS"
	ItemFail          ItemStatus = "FAIL"
	ItemInconclusive  ItemStatus = "INCONCLUSIVE"
	ItemNotApplicable ItemStatus = "NOT_APPLICABLE"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemPass, ItemFail, ItemInconclusive, ItemNotApplicable:
		return true
	}
	return false
}

// Section ids every checklist must carry.
const (
	SectionLivingRoom   = "living_room"
	SectionKitchen      = "kitchen"
	SectionBathroom     = "bathroom_1"
	SectionHealthSafety = "health_safety"
)

var MandatorySections = []string{SectionLivingRoom, SectionKitchen, SectionBathroom, SectionHealthSafety}

// Item is one observation inside a section.
type Item struct {
	ID             string     `json:"id"`
	Label          string     `json:"label"`
	Status         ItemStatus `json:"status"`
	Comment        string     `json:"comment,omitempty"`
	Is24Hour       bool       `json:"is24Hour"`
	Responsibility string     `json:"responsibility,omitempty"`
	Photos         []string   `json:"photos,omitempty"`
}

// Section groups items for one room or area, in display order.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Checklist is the ordered section/item tree of one inspection.
type Checklist struct {
	Sections []Section `json:"sections"`
}

// Section returns the section with the given id.
func (c Checklist) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Items calls fn for every item in order.
func (c Checklist) Items(fn func(Section, Item)) {
	for _, s := range c.Sections {
		for _, it := range s.Items {
			fn(s, it)
		}
	}
}

// Value stores the checklist as a JSON column.
func (c Checklist) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON column.
func (c *Checklist) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Checklist{}
		return nil
	case []byte:
		if len(v) == 0 {
			*c = Checklist{}
			return nil
		}
		return json.Unmarshal(v, c)
	case string:
		if v == "" {
			*c = Checklist{}
			return nil
		}
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("checklist: unsupported column type %T", src)
	}
}
