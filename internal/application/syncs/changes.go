package syncs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

// operation is the closed set of mutations a device may submit. Every
// concrete type below implements apply; decode is the only place a
// (type, action) pair is turned into one.
type operation interface {
	entity() domain.EntityType
	apply(ctx context.Context, a *applier) (applied, error)
}

type applied struct {
	entityID string
	before   any
	after    any
}

// applier carries the per-change context an operation runs in.
type applier struct {
	tx     store.Repos
	agency string
	actor  string
	change domain.Change
	now    time.Time
}

// stamp is the watermark written for a change: the time the device made it.
func (a *applier) stamp() time.Time {
	if a.change.Timestamp.IsZero() {
		return a.now
	}
	return a.change.Timestamp
}

// stale reports whether the stored watermark is strictly newer than the change.
func (a *applier) stale(stored time.Time) bool {
	return stored.After(a.stamp())
}

type (
	inspectionCreate  struct{ p inspectionPayload }
	inspectionUpdate  struct{ p inspectionPayload }
	inspectionDelete  struct{ id string }
	scheduleCreate    struct{ p schedulePayload }
	scheduleUpdate    struct{ p schedulePayload }
	scheduleDelete    struct{ id string }
	deficiencyResolve struct{ id string }
	deficiencyUpdate  struct{ p deficiencyPayload }
)

type inspectionPayload struct {
	ID                   string                 `json:"id"`
	UnitID               string                 `json:"unitId"`
	InspectorID          *string                `json:"inspectorId"`
	Type                 inspections.Type       `json:"inspectionType"`
	Status               inspections.Status     `json:"status"`
	ScheduledDate        *time.Time             `json:"scheduledDate"`
	Checklist            *inspections.Checklist `json:"checklist"`
	ReinspectionDeadline *time.Time             `json:"reinspectionDeadline"`
}

type schedulePayload struct {
	ID           string                     `json:"id"`
	InspectionID string                     `json:"inspectionId"`
	InspectorID  *string                    `json:"inspectorId"`
	Date         *time.Time                 `json:"date"`
	Time         *string                    `json:"time"`
	Status       inspections.ScheduleStatus `json:"status"`
	Notes        *string                    `json:"notes"`
}

type deficiencyPayload struct {
	ID             string                       `json:"id"`
	Description    *string                      `json:"description"`
	Responsibility *string                      `json:"responsibility"`
	Status         inspections.DeficiencyStatus `json:"status"`
	DueDate        *time.Time                   `json:"dueDate"`
	Photos         []string                     `json:"photos"`
}

type idPayload struct {
	ID string `json:"id"`
}

func decode(c domain.Change) (operation, error) {
	switch c.Type {
	case domain.EntityInspection:
		switch c.Action {
		case domain.ActionCreate:
			var p inspectionPayload
			if err := unmarshal(c, &p); err != nil {
				return nil, err
			}
			return inspectionCreate{p}, nil
		case domain.ActionUpdate:
			var p inspectionPayload
			if err := unmarshal(c, &p); err != nil {
				return nil, err
			}
			if p.ID == "" {
				return nil, errs.Invalid("data.id", "inspection id is required")
			}
			return inspectionUpdate{p}, nil
		case domain.ActionDelete:
			id, err := decodeID(c)
			if err != nil {
				return nil, err
			}
			return inspectionDelete{id}, nil
		}
	case domain.EntitySchedule:
		switch c.Action {
		case domain.ActionCreate:
			var p schedulePayload
			if err := unmarshal(c, &p); err != nil {
				return nil, err
			}
			return scheduleCreate{p}, nil
		case domain.ActionUpdate:
			var p schedulePayload
			if err := unmarshal(c, &p); err != nil {
				return nil, err
			}
			if p.ID == "" {
				return nil, errs.Invalid("data.id", "schedule id is required")
			}
			return scheduleUpdate{p}, nil
		case domain.ActionDelete:
			id, err := decodeID(c)
			if err != nil {
				return nil, err
			}
			return scheduleDelete{id}, nil
		}
	case domain.EntityDeficiency:
		switch c.Action {
		case domain.ActionResolve:
			id, err := decodeID(c)
			if err != nil {
				return nil, err
			}
			return deficiencyResolve{id}, nil
		case domain.ActionUpdate:
			var p deficiencyPayload
			if err := unmarshal(c, &p); err != nil {
				return nil, err
			}
			if p.ID == "" {
				return nil, errs.Invalid("data.id", "deficiency id is required")
			}
			return deficiencyUpdate{p}, nil
		}
	default:
		return nil, errs.Invalid("type", "unknown entity type %q", c.Type)
	}
	return nil, errs.Invalid("action", "action %q is not supported for %s", c.Action, c.Type)
}

func unmarshal(c domain.Change, v any) error {
	if len(c.Data) == 0 {
		return errs.Invalid("data", "change carries no data")
	}
	if err := json.Unmarshal(c.Data, v); err != nil {
		return errs.Invalid("data", "malformed payload: %v", err)
	}
	return nil
}

func decodeID(c domain.Change) (string, error) {
	var p idPayload
	if err := unmarshal(c, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", errs.Invalid("data.id", "id is required")
	}
	return p.ID, nil
}

// ==== inspections ====

func (inspectionCreate) entity() domain.EntityType { return domain.EntityInspection }

func (op inspectionCreate) apply(ctx context.Context, a *applier) (applied, error) {
	p := op.p
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else {
		existing, err := a.tx.Inspections().Get(ctx, a.agency, p.ID)
		switch {
		case err == nil:
			// Replayed create of a row that already landed: last writer wins.
			return updateInspection(ctx, a, existing, p)
		case !errs.IsNotFound(err):
			return applied{}, err
		}
	}
	if p.UnitID == "" {
		return applied{}, errs.Invalid("data.unitId", "unit id is required")
	}
	if p.Checklist == nil {
		return applied{}, errs.Invalid("data.checklist", "checklist is required")
	}
	unit, err := a.tx.Units().Get(ctx, a.agency, p.UnitID)
	if err != nil {
		return applied{}, err
	}

	in := &inspections.Inspection{
		ID:                   p.ID,
		AgencyID:             a.agency,
		UnitID:               unit.ID,
		InspectorID:          p.InspectorID,
		Type:                 p.Type,
		Status:               p.Status,
		ScheduledDate:        p.ScheduledDate,
		ReinspectionDeadline: p.ReinspectionDeadline,
		CreatedAt:            a.stamp(),
		UpdatedAt:            a.stamp(),
	}
	if in.Type == "" {
		in.Type = inspections.TypeInitial
	}
	if in.Status == "" {
		in.Status = inspections.StatusDraft
	}
	if err := checkEnums(in); err != nil {
		return applied{}, err
	}
	switch in.Status {
	case inspections.StatusDraft, inspections.StatusPending, inspections.StatusComplete:
	default:
		return applied{}, errs.Invalid("data.status", "an inspection cannot be created as %s", in.Status)
	}
	checklist, err := inspections.ValidateChecklist(*p.Checklist, inspections.ValidateOptions{
		YearBuilt:       unit.YearBuilt,
		RequireComplete: in.Status == inspections.StatusComplete,
	})
	if err != nil {
		return applied{}, err
	}
	in.Checklist = checklist
	if in.Status == inspections.StatusComplete {
		at := a.stamp()
		in.CompletedAt = &at
	}

	if err := a.tx.Inspections().Insert(ctx, in); err != nil {
		return applied{}, err
	}
	if err := a.tx.Deficiencies().Replace(ctx, a.agency, in.ID, inspections.ExtractDeficiencies(a.agency, in.ID, in.Checklist, a.now)); err != nil {
		return applied{}, err
	}
	return applied{entityID: in.ID, after: in}, nil
}

func (inspectionUpdate) entity() domain.EntityType { return domain.EntityInspection }

func (op inspectionUpdate) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Inspections().Get(ctx, a.agency, op.p.ID)
	if err != nil {
		return applied{}, err
	}
	return updateInspection(ctx, a, existing, op.p)
}

func updateInspection(ctx context.Context, a *applier, existing *inspections.Inspection, p inspectionPayload) (applied, error) {
	if a.stale(existing.UpdatedAt) {
		return applied{}, &errs.ConflictError{Entity: "inspection", ID: existing.ID, Current: existing}
	}
	before := *existing
	next := *existing

	if p.UnitID != "" && p.UnitID != existing.UnitID {
		return applied{}, errs.Invalid("data.unitId", "an inspection cannot move to another unit")
	}
	if p.InspectorID != nil {
		next.InspectorID = p.InspectorID
	}
	if p.Type != "" {
		next.Type = p.Type
	}
	if p.Status != "" && p.Status != existing.Status {
		if p.Status.SchedulerOwned() {
			return applied{}, errs.Invalid("data.status", "status %s is set by the scheduler", p.Status)
		}
		if !existing.Status.CanTransition(p.Status) {
			return applied{}, errs.Invalid("data.status", "inspection is %s and cannot become %s", existing.Status, p.Status)
		}
		next.Status = p.Status
	}
	if p.ScheduledDate != nil {
		next.ScheduledDate = p.ScheduledDate
	}
	if p.ReinspectionDeadline != nil {
		next.ReinspectionDeadline = p.ReinspectionDeadline
	}
	if p.Checklist != nil {
		next.Checklist = *p.Checklist
	}
	if err := checkEnums(&next); err != nil {
		return applied{}, err
	}

	unit, err := a.tx.Units().Get(ctx, a.agency, next.UnitID)
	if err != nil {
		return applied{}, err
	}
	checklist, err := inspections.ValidateChecklist(next.Checklist, inspections.ValidateOptions{
		YearBuilt:       unit.YearBuilt,
		RequireComplete: next.Status == inspections.StatusComplete,
	})
	if err != nil {
		return applied{}, err
	}
	next.Checklist = checklist
	if next.Status == inspections.StatusComplete && next.CompletedAt == nil {
		at := a.stamp()
		next.CompletedAt = &at
	}
	next.UpdatedAt = a.stamp()

	if err := a.tx.Inspections().Update(ctx, &next); err != nil {
		return applied{}, err
	}
	if err := a.tx.Deficiencies().Replace(ctx, a.agency, next.ID, inspections.ExtractDeficiencies(a.agency, next.ID, next.Checklist, a.now)); err != nil {
		return applied{}, err
	}
	return applied{entityID: next.ID, before: &before, after: &next}, nil
}

func checkEnums(in *inspections.Inspection) error {
	if !in.Type.Valid() {
		return errs.Invalid("data.inspectionType", "unknown inspection type %q", in.Type)
	}
	if !in.Status.Valid() {
		return errs.Invalid("data.status", "unknown status %q", in.Status)
	}
	return nil
}

func (inspectionDelete) entity() domain.EntityType { return domain.EntityInspection }

// apply cancels the inspection; rows are never removed.
func (op inspectionDelete) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Inspections().Get(ctx, a.agency, op.id)
	if err != nil {
		return applied{}, err
	}
	if a.stale(existing.UpdatedAt) {
		return applied{}, &errs.ConflictError{Entity: "inspection", ID: existing.ID, Current: existing}
	}
	if existing.Status == inspections.StatusCancelled {
		return applied{entityID: existing.ID, before: existing, after: existing}, nil
	}
	if !existing.Status.CanTransition(inspections.StatusCancelled) {
		return applied{}, errs.Invalid("data.id", "inspection is %s and cannot be cancelled", existing.Status)
	}
	before := *existing
	next := *existing
	next.Status = inspections.StatusCancelled
	next.UpdatedAt = a.stamp()
	if err := a.tx.Inspections().Update(ctx, &next); err != nil {
		return applied{}, err
	}
	return applied{entityID: next.ID, before: &before, after: &next}, nil
}

// ==== schedules ====

func (scheduleCreate) entity() domain.EntityType { return domain.EntitySchedule }

func (op scheduleCreate) apply(ctx context.Context, a *applier) (applied, error) {
	p := op.p
	if p.InspectionID == "" {
		return applied{}, errs.Invalid("data.inspectionId", "inspection id is required")
	}
	if p.Date == nil || p.Date.IsZero() {
		return applied{}, errs.Invalid("data.date", "date is required")
	}
	if _, err := a.tx.Inspections().Get(ctx, a.agency, p.InspectionID); err != nil {
		return applied{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if existing, err := a.tx.Schedules().Get(ctx, a.agency, p.ID); err == nil {
		return updateSchedule(ctx, a, existing, p)
	} else if !errs.IsNotFound(err) {
		return applied{}, err
	}

	s := &inspections.Schedule{
		ID:           p.ID,
		AgencyID:     a.agency,
		InspectionID: p.InspectionID,
		InspectorID:  p.InspectorID,
		Date:         *p.Date,
		Status:       p.Status,
		CreatedAt:    a.stamp(),
		UpdatedAt:    a.stamp(),
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if s.Status == "" {
		s.Status = inspections.ScheduleScheduled
	}
	if !s.Status.Valid() {
		return applied{}, errs.Invalid("data.status", "unknown schedule status %q", s.Status)
	}
	if err := a.tx.Schedules().Insert(ctx, s); err != nil {
		return applied{}, err
	}
	return applied{entityID: s.ID, after: s}, nil
}

func (scheduleUpdate) entity() domain.EntityType { return domain.EntitySchedule }

func (op scheduleUpdate) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Schedules().Get(ctx, a.agency, op.p.ID)
	if err != nil {
		return applied{}, err
	}
	return updateSchedule(ctx, a, existing, op.p)
}

func updateSchedule(ctx context.Context, a *applier, existing *inspections.Schedule, p schedulePayload) (applied, error) {
	if a.stale(existing.UpdatedAt) {
		return applied{}, &errs.ConflictError{Entity: "schedule", ID: existing.ID, Current: existing}
	}
	before := *existing
	next := *existing
	if p.InspectionID != "" && p.InspectionID != existing.InspectionID {
		return applied{}, errs.Invalid("data.inspectionId", "a schedule cannot move to another inspection")
	}
	if p.InspectorID != nil {
		next.InspectorID = p.InspectorID
	}
	if p.Date != nil && !p.Date.IsZero() {
		next.Date = *p.Date
	}
	if p.Time != nil {
		next.Time = *p.Time
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.Status != "" {
		if !p.Status.Valid() {
			return applied{}, errs.Invalid("data.status", "unknown schedule status %q", p.Status)
		}
		next.Status = p.Status
	}
	next.UpdatedAt = a.stamp()
	if err := a.tx.Schedules().Update(ctx, &next); err != nil {
		return applied{}, err
	}
	return applied{entityID: next.ID, before: &before, after: &next}, nil
}

func (scheduleDelete) entity() domain.EntityType { return domain.EntitySchedule }

func (op scheduleDelete) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Schedules().Get(ctx, a.agency, op.id)
	if err != nil {
		return applied{}, err
	}
	if err := a.tx.Schedules().Delete(ctx, a.agency, op.id); err != nil {
		return applied{}, err
	}
	return applied{entityID: op.id, before: existing}, nil
}

// ==== deficiencies ====

func (deficiencyResolve) entity() domain.EntityType { return domain.EntityDeficiency }

func (op deficiencyResolve) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Deficiencies().Get(ctx, a.agency, op.id)
	if err != nil {
		return applied{}, err
	}
	before := *existing
	next := *existing
	at := a.stamp()
	next.Status = inspections.DeficiencyResolved
	next.ResolvedDate = &at
	if err := a.tx.Deficiencies().Update(ctx, &next); err != nil {
		return applied{}, err
	}
	return applied{entityID: next.ID, before: &before, after: &next}, nil
}

func (deficiencyUpdate) entity() domain.EntityType { return domain.EntityDeficiency }

func (op deficiencyUpdate) apply(ctx context.Context, a *applier) (applied, error) {
	existing, err := a.tx.Deficiencies().Get(ctx, a.agency, op.p.ID)
	if err != nil {
		return applied{}, err
	}
	before := *existing
	next := *existing
	p := op.p
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Responsibility != nil {
		next.Responsibility = *p.Responsibility
	}
	if p.DueDate != nil && !p.DueDate.IsZero() {
		next.DueDate = *p.DueDate
	}
	if p.Photos != nil {
		next.Photos = p.Photos
	}
	if p.Status != "" {
		if !p.Status.Valid() {
			return applied{}, errs.Invalid("data.status", "unknown deficiency status %q", p.Status)
		}
		next.Status = p.Status
		if p.Status == inspections.DeficiencyOpen {
			next.ResolvedDate = nil
		} else if next.ResolvedDate == nil {
			at := a.stamp()
			next.ResolvedDate = &at
		}
	}
	if err := a.tx.Deficiencies().Update(ctx, &next); err != nil {
		return applied{}, err
	}
	return applied{entityID: next.ID, before: &before, after: &next}, nil
}

// auditEntry captures one applied change.
func auditEntry(a *applier, op operation, res applied) (*audit.Entry, error) {
	before, err := marshalState(res.before)
	if err != nil {
		return nil, err
	}
	after, err := marshalState(res.after)
	if err != nil {
		return nil, err
	}
	return &audit.Entry{
		ID:         uuid.NewString(),
		AgencyID:   a.agency,
		ActorID:    a.actor,
		Action:     string(op.entity()) + "." + string(a.change.Action),
		EntityType: string(op.entity()),
		EntityID:   res.entityID,
		ChangeID:   a.change.ID,
		Before:     before,
		After:      after,
		CreatedAt:  a.now,
	}, nil
}

func marshalState(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
