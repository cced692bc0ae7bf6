package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
)

// Follow-up windows.
const (
	ReinspectionWindow = 30 * 24 * time.Hour
	NoEntryRetryWindow = 14 * 24 * time.Hour
)

// Service drives the compliance lifecycle of units and inspections.
// Every operation runs in one all-or-nothing transaction.
type Service struct {
	Store   store.Store
	Notices notices.Generator
	Clock   application.Clock
	Log     *zap.Logger
	// Location decides which calendar day an inspection falls on when
	// auto-routing; nil means UTC.
	Location *time.Location
}

//
// ==== USE CASES ====
//

// ScheduleCommand creates an inspection together with its calendar slot.
type ScheduleCommand struct {
	AgencyID    string
	ActorID     string
	UnitID      string
	Type        domain.Type
	Date        time.Time
	Time        string
	InspectorID *string
	Notes       string
}

type ScheduleResult struct {
	Inspection *domain.Inspection `json:"inspection"`
	Schedule   *domain.Schedule   `json:"schedule"`
}

// ScheduleInspection creates a draft inspection and a paired schedule. Either
// both are stored or neither is.
func (s *Service) ScheduleInspection(ctx context.Context, cmd ScheduleCommand) (ScheduleResult, error) {
	if cmd.UnitID == "" {
		return ScheduleResult{}, errs.Invalid("unitId", "unit id is required")
	}
	if cmd.Type == "" {
		cmd.Type = domain.TypeAnnual
	}
	if !cmd.Type.Valid() {
		return ScheduleResult{}, errs.Invalid("inspectionType", "unknown inspection type %q", cmd.Type)
	}
	if cmd.Date.IsZero() {
		return ScheduleResult{}, errs.Invalid("date", "date is required")
	}

	now := s.Clock.Now()
	date := cmd.Date
	in := &domain.Inspection{
		ID:            uuid.NewString(),
		AgencyID:      cmd.AgencyID,
		UnitID:        cmd.UnitID,
		InspectorID:   cmd.InspectorID,
		Type:          cmd.Type,
		Status:        domain.StatusDraft,
		ScheduledDate: &date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sch := &domain.Schedule{
		ID:           uuid.NewString(),
		AgencyID:     cmd.AgencyID,
		InspectionID: in.ID,
		InspectorID:  cmd.InspectorID,
		Date:         date,
		Time:         cmd.Time,
		Status:       domain.ScheduleScheduled,
		Notes:        cmd.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.Units().Get(ctx, cmd.AgencyID, cmd.UnitID); err != nil {
			return err
		}
		if err := tx.Inspections().Insert(ctx, in); err != nil {
			return fmt.Errorf("insert inspection: %w", err)
		}
		if err := tx.Schedules().Insert(ctx, sch); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "inspection.schedule", "inspection", in.ID, nil, in, now); err != nil {
			return err
		}
		return application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "schedule.create", "schedule", sch.ID, nil, sch, now)
	})
	if err != nil {
		return ScheduleResult{}, errs.Tx("schedule inspection", err)
	}

	s.requestNotice(ctx, cmd.AgencyID, in.ID, notices.TypeScheduleNotice)
	s.logger().Info("inspection scheduled",
		zap.String("agency_id", cmd.AgencyID),
		zap.String("inspection_id", in.ID),
		zap.Time("date", date),
	)
	return ScheduleResult{Inspection: in, Schedule: sch}, nil
}

// RescheduleCommand moves an inspection to a new date.
type RescheduleCommand struct {
	AgencyID     string
	ActorID      string
	InspectionID string
	NewDate      time.Time
	Reason       string
}

type RescheduleResult struct {
	Inspection *domain.Inspection `json:"inspection"`
	Schedule   *domain.Schedule   `json:"schedule"`
	// NeedsReview is set when the new date is past the reinspection deadline.
	NeedsReview bool `json:"needsReview"`
}

// RescheduleInspection updates the inspection date and its schedule. A date
// past the reinspection deadline is accepted and flagged for review.
func (s *Service) RescheduleInspection(ctx context.Context, cmd RescheduleCommand) (RescheduleResult, error) {
	if cmd.InspectionID == "" {
		return RescheduleResult{}, errs.Invalid("inspectionId", "inspection id is required")
	}
	if cmd.NewDate.IsZero() {
		return RescheduleResult{}, errs.Invalid("newDate", "new date is required")
	}

	now := s.Clock.Now()
	var out RescheduleResult
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		in, err := tx.Inspections().Get(ctx, cmd.AgencyID, cmd.InspectionID)
		if err != nil {
			return err
		}
		if in.Status.Terminal() {
			return errs.Invalid("inspectionId", "inspection is %s and cannot be rescheduled", in.Status)
		}
		before := *in
		date := cmd.NewDate
		in.ScheduledDate = &date
		in.UpdatedAt = now
		if err := tx.Inspections().Update(ctx, in); err != nil {
			return fmt.Errorf("update inspection: %w", err)
		}
		if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "inspection.reschedule", "inspection", in.ID, &before, in, now); err != nil {
			return err
		}

		sch, err := tx.Schedules().LatestForInspection(ctx, cmd.AgencyID, in.ID)
		switch {
		case err == nil:
			prev := *sch
			sch.Date = date
			sch.Notes = appendNote(sch.Notes, rescheduleNote(prev.Date, date, cmd.Reason))
			sch.UpdatedAt = now
			if err := tx.Schedules().Update(ctx, sch); err != nil {
				return fmt.Errorf("update schedule: %w", err)
			}
			if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "schedule.reschedule", "schedule", sch.ID, &prev, sch, now); err != nil {
				return err
			}
		case errs.IsNotFound(err):
			sch = &domain.Schedule{
				ID:           uuid.NewString(),
				AgencyID:     cmd.AgencyID,
				InspectionID: in.ID,
				InspectorID:  in.InspectorID,
				Date:         date,
				Status:       domain.ScheduleScheduled,
				Notes:        strings.TrimSpace(cmd.Reason),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Schedules().Insert(ctx, sch); err != nil {
				return fmt.Errorf("insert schedule: %w", err)
			}
			if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "schedule.create", "schedule", sch.ID, nil, sch, now); err != nil {
				return err
			}
		default:
			return err
		}

		out = RescheduleResult{
			Inspection:  in,
			Schedule:    sch,
			NeedsReview: in.ReinspectionDeadline != nil && date.After(*in.ReinspectionDeadline),
		}
		return nil
	})
	if err != nil {
		return RescheduleResult{}, errs.Tx("reschedule inspection", err)
	}

	if out.NeedsReview {
		s.logger().Warn("inspection rescheduled past reinspection deadline",
			zap.String("agency_id", cmd.AgencyID),
			zap.String("inspection_id", cmd.InspectionID),
			zap.Time("new_date", cmd.NewDate),
			zap.Time("deadline", *out.Inspection.ReinspectionDeadline),
			zap.String("reason", cmd.Reason),
		)
	}
	return out, nil
}

func rescheduleNote(from, to time.Time, reason string) string {
	note := fmt.Sprintf("rescheduled %s -> %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if r := strings.TrimSpace(reason); r != "" {
		note += ": " + r
	}
	return note
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// ResultCommand records the outcome of an inspection visit.
type ResultCommand struct {
	AgencyID     string
	ActorID      string
	InspectionID string
	Result       domain.Result
	// Deficiencies recorded outside the checklist, stored alongside the
	// derived ones.
	Deficiencies []domain.Deficiency
}

type ResultOutcome struct {
	Inspection *domain.Inspection `json:"inspection"`
	Unit       *domain.Unit       `json:"unit"`
	FollowUp   *domain.Inspection `json:"followUp,omitempty"`
}

// ProcessInspectionResult closes the inspection and moves the unit's
// compliance status. Fail spawns a pending reinspection due in 30 days;
// No Entry spawns a scheduled retry of the same type in 14 days.
func (s *Service) ProcessInspectionResult(ctx context.Context, cmd ResultCommand) (ResultOutcome, error) {
	if !cmd.Result.Valid() {
		return ResultOutcome{}, errs.Invalid("result", "unknown result %q", cmd.Result)
	}

	now := s.Clock.Now()
	var out ResultOutcome
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		in, err := tx.Inspections().Get(ctx, cmd.AgencyID, cmd.InspectionID)
		if err != nil {
			return err
		}
		if in.Status.Terminal() {
			return errs.Invalid("inspectionId", "inspection is already %s", in.Status)
		}
		if in.Status == domain.StatusDraft {
			return errs.Invalid("inspectionId", "draft inspection must be pending before it takes a result")
		}
		unit, err := tx.Units().Get(ctx, cmd.AgencyID, in.UnitID)
		if err != nil {
			return err
		}
		if cmd.Result != domain.ResultNoEntry {
			checklist, err := domain.ValidateChecklist(in.Checklist, domain.ValidateOptions{
				YearBuilt:       unit.YearBuilt,
				RequireComplete: true,
			})
			if err != nil {
				return err
			}
			in.Checklist = checklist
		}
		beforeIn, beforeUnit := *in, *unit

		var followUp *domain.Inspection
		switch cmd.Result {
		case domain.ResultPass:
			unit.ComplianceStatus = domain.ComplianceCompliant
			unit.LastInspectionDate = &now
			in.Status = domain.StatusComplete
			in.CompletedAt = &now
		case domain.ResultFail:
			unit.ComplianceStatus = domain.ComplianceNonCompliant
			in.Status = domain.StatusComplete
			in.CompletedAt = &now
			deadline := now.Add(ReinspectionWindow)
			followUp = &domain.Inspection{
				ID:                   uuid.NewString(),
				AgencyID:             cmd.AgencyID,
				UnitID:               unit.ID,
				Type:                 domain.TypeReinspection,
				Status:               domain.StatusPending,
				ScheduledDate:        &deadline,
				ReinspectionDeadline: &deadline,
				ParentID:             &in.ID,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
		case domain.ResultNoEntry:
			in.Status = domain.StatusNoEntry
			retry := now.Add(NoEntryRetryWindow)
			followUp = &domain.Inspection{
				ID:            uuid.NewString(),
				AgencyID:      cmd.AgencyID,
				UnitID:        unit.ID,
				InspectorID:   in.InspectorID,
				Type:          in.Type,
				Status:        domain.StatusScheduled,
				ScheduledDate: &retry,
				ParentID:      &in.ID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
		}
		in.UpdatedAt = now
		unit.UpdatedAt = now

		if err := tx.Inspections().Update(ctx, in); err != nil {
			return fmt.Errorf("update inspection: %w", err)
		}
		if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "inspection.result", "inspection", in.ID, &beforeIn, in, now); err != nil {
			return err
		}
		if cmd.Result != domain.ResultNoEntry {
			if err := tx.Units().Save(ctx, unit); err != nil {
				return fmt.Errorf("update unit: %w", err)
			}
			if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "unit.compliance", "unit", unit.ID, &beforeUnit, unit, now); err != nil {
				return err
			}
		}

		if sch, err := tx.Schedules().LatestForInspection(ctx, cmd.AgencyID, in.ID); err == nil {
			sch.Status = domain.ScheduleCompleted
			sch.UpdatedAt = now
			if err := tx.Schedules().Update(ctx, sch); err != nil {
				return fmt.Errorf("complete schedule: %w", err)
			}
		} else if !errs.IsNotFound(err) {
			return err
		}

		for i := range cmd.Deficiencies {
			d, err := normalizeDeficiency(cmd.Deficiencies[i], i, cmd.AgencyID, in.ID, now)
			if err != nil {
				return err
			}
			if err := tx.Deficiencies().Insert(ctx, &d); err != nil {
				return fmt.Errorf("insert deficiency: %w", err)
			}
		}

		if followUp != nil {
			if err := tx.Inspections().Insert(ctx, followUp); err != nil {
				return fmt.Errorf("insert follow-up: %w", err)
			}
			if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "inspection.follow_up", "inspection", followUp.ID, nil, followUp, now); err != nil {
				return err
			}
			if followUp.Status == domain.StatusScheduled {
				sch := &domain.Schedule{
					ID:           uuid.NewString(),
					AgencyID:     cmd.AgencyID,
					InspectionID: followUp.ID,
					InspectorID:  followUp.InspectorID,
					Date:         *followUp.ScheduledDate,
					Status:       domain.ScheduleScheduled,
					Notes:        "no entry on previous attempt",
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := tx.Schedules().Insert(ctx, sch); err != nil {
					return fmt.Errorf("insert follow-up schedule: %w", err)
				}
			}
		}

		out = ResultOutcome{Inspection: in, Unit: unit, FollowUp: followUp}
		return nil
	})
	if err != nil {
		return ResultOutcome{}, errs.Tx("process inspection result", err)
	}

	if cmd.Result == domain.ResultFail {
		s.requestNotice(ctx, cmd.AgencyID, cmd.InspectionID, notices.TypeFailureNotice)
	}
	s.logger().Info("inspection result processed",
		zap.String("agency_id", cmd.AgencyID),
		zap.String("inspection_id", cmd.InspectionID),
		zap.String("result", string(cmd.Result)),
	)
	return out, nil
}

// normalizeDeficiency prepares a deficiency recorded outside the checklist.
// Ids are always minted here; a client-chosen id could collide with a row of
// another inspection or agency.
func normalizeDeficiency(d domain.Deficiency, i int, agency, inspectionID string, now time.Time) (domain.Deficiency, error) {
	d.ID = uuid.NewString()
	d.AgencyID = agency
	d.InspectionID = inspectionID
	if d.Status == "" {
		d.Status = domain.DeficiencyOpen
	}
	if !d.Status.Valid() {
		return domain.Deficiency{}, errs.Invalid(fmt.Sprintf("deficiencies[%d].status", i), "unknown deficiency status %q", d.Status)
	}
	if d.Responsibility == "" {
		d.Responsibility = domain.DefaultResponsibility
	}
	if d.DueDate.IsZero() {
		d.DueDate = domain.DueDate(now, d.Is24Hour)
	}
	d.CreatedAt = now
	return d, nil
}

// UnitsDue returns units never inspected or whose next due date falls within
// days from now.
func (s *Service) UnitsDue(ctx context.Context, agency string, days int) ([]*domain.Unit, error) {
	if days < 0 {
		return nil, errs.Invalid("days", "days must not be negative")
	}
	units, err := s.Store.Units().ListByAgency(ctx, agency)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	now := s.Clock.Now()
	out := make([]*domain.Unit, 0, len(units))
	for _, u := range units {
		if domain.DueWithin(*u, now, days) {
			out = append(out, u)
		}
	}
	return out, nil
}

// requestNotice asks the notice collaborator for a document. Failure is
// logged and never fails the triggering operation.
func (s *Service) requestNotice(ctx context.Context, agency, inspectionID string, t notices.Type) {
	if s.Notices == nil {
		return
	}
	n, err := s.Notices.GenerateNotice(ctx, agency, inspectionID, t)
	if err != nil {
		s.logger().Warn("notice request failed",
			zap.String("agency_id", agency),
			zap.String("inspection_id", inspectionID),
			zap.String("type", string(t)),
			zap.Error(err),
		)
		return
	}
	s.logger().Debug("notice requested", zap.String("notice_id", n.ID), zap.String("type", string(t)))
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
