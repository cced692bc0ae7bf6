package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	appnotices "github.com/bryanwahyu/inspection-sync/internal/application/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/memory"
)

const agency = "agency-1"

var now = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	for _, u := range []domain.Unit{
		{ID: "unit-1", AgencyID: agency, Address: "1 Main St", ZipCode: "94110", Frequency: domain.FrequencyAnnual, ComplianceStatus: domain.ComplianceAbatement},
		{ID: "unit-2", AgencyID: agency, Address: "9 Oak Ave", ZipCode: "94117", Frequency: domain.FrequencyBiennial},
		{ID: "unit-3", AgencyID: agency, Address: "3 Pine Rd", Frequency: domain.FrequencyAnnual},
	} {
		u := u
		require.NoError(t, st.Units().Save(ctx, &u))
	}
	clock := application.FixedClock{At: now}
	return &Service{Store: st, Notices: appnotices.NewService(st.Notices(), clock), Clock: clock}, st
}

func seedInspection(t *testing.T, st *memory.Store, id, unitID string, status domain.Status, date time.Time) {
	t.Helper()
	d := date
	require.NoError(t, st.Inspections().Insert(context.Background(), &domain.Inspection{
		ID: id, AgencyID: agency, UnitID: unitID, Type: domain.TypeAnnual, Status: status,
		ScheduledDate: &d, Checklist: completeChecklist(), CreatedAt: now, UpdatedAt: now,
	}))
}

func completeChecklist() domain.Checklist {
	var c domain.Checklist
	for _, id := range domain.MandatorySections {
		c.Sections = append(c.Sections, domain.Section{ID: id, Items: []domain.Item{{ID: "item", Status: domain.ItemPass}}})
	}
	return c
}

func auditActions(st *memory.Store, action string) int {
	n := 0
	for _, e := range st.AuditEntries() {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestScheduleInspection(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	inspector := "insp-a"
	date := now.AddDate(0, 0, 7)

	res, err := svc.ScheduleInspection(ctx, ScheduleCommand{
		AgencyID: agency, ActorID: "u1", UnitID: "unit-1", Date: date, Time: "10:00", InspectorID: &inspector,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, res.Inspection.Status)
	assert.Equal(t, domain.TypeAnnual, res.Inspection.Type)
	assert.Equal(t, domain.ScheduleScheduled, res.Schedule.Status)
	assert.Equal(t, res.Inspection.ID, res.Schedule.InspectionID)

	_, err = st.Inspections().Get(ctx, agency, res.Inspection.ID)
	require.NoError(t, err)
	sch, err := st.Schedules().LatestForInspection(ctx, agency, res.Inspection.ID)
	require.NoError(t, err)
	assert.Equal(t, "10:00", sch.Time)

	ns, err := st.Notices().ListByInspection(ctx, agency, res.Inspection.ID)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, notices.TypeScheduleNotice, ns[0].Type)
	assert.Equal(t, notices.StatusPending, ns[0].Status)
}

func TestScheduleInspection_AllOrNothing(t *testing.T) {
	svc, st := setup(t)
	st.CommitErr = errors.New("connection lost")

	_, err := svc.ScheduleInspection(context.Background(), ScheduleCommand{AgencyID: agency, UnitID: "unit-1", Date: now})
	require.Error(t, err)
	assert.True(t, errs.IsTransaction(err))
	assert.Empty(t, st.AuditEntries())
}

func TestScheduleInspection_Validation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.ScheduleInspection(ctx, ScheduleCommand{AgencyID: agency, Date: now})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.ScheduleInspection(ctx, ScheduleCommand{AgencyID: agency, UnitID: "unit-1", Type: "Weekly", Date: now})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.ScheduleInspection(ctx, ScheduleCommand{AgencyID: agency, UnitID: "missing", Date: now})
	assert.True(t, errs.IsNotFound(err))

	_, err = svc.ScheduleInspection(ctx, ScheduleCommand{AgencyID: "agency-2", UnitID: "unit-1", Date: now})
	assert.True(t, errs.IsNotFound(err), "units are scoped to their agency")
}

func TestRescheduleInspection(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	res, err := svc.ScheduleInspection(ctx, ScheduleCommand{AgencyID: agency, UnitID: "unit-1", Date: now.AddDate(0, 0, 2)})
	require.NoError(t, err)

	newDate := now.AddDate(0, 0, 5)
	out, err := svc.RescheduleInspection(ctx, RescheduleCommand{AgencyID: agency, InspectionID: res.Inspection.ID, NewDate: newDate, Reason: "tenant away"})
	require.NoError(t, err)
	assert.False(t, out.NeedsReview)
	assert.Equal(t, res.Schedule.ID, out.Schedule.ID)
	assert.Equal(t, newDate, out.Schedule.Date)
	assert.Contains(t, out.Schedule.Notes, "tenant away")

	in, err := st.Inspections().Get(ctx, agency, res.Inspection.ID)
	require.NoError(t, err)
	assert.Equal(t, newDate, *in.ScheduledDate)
}

func TestRescheduleInspection_PastDeadlineIsFlagged(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	out, err := svc.ProcessInspectionResult(ctx, resultFor(t, st, "insp-1", domain.ResultFail))
	require.NoError(t, err)
	reinspection := out.FollowUp

	late := reinspection.ReinspectionDeadline.Add(72 * time.Hour)
	res, err := svc.RescheduleInspection(ctx, RescheduleCommand{AgencyID: agency, InspectionID: reinspection.ID, NewDate: late})
	require.NoError(t, err)
	assert.True(t, res.NeedsReview)
	assert.Equal(t, late, *res.Inspection.ScheduledDate)
	require.NotNil(t, res.Schedule, "a schedule is created when none existed")
	assert.Equal(t, late, res.Schedule.Date)
}

func TestRescheduleInspection_Terminal(t *testing.T) {
	svc, st := setup(t)
	seedInspection(t, st, "done", "unit-1", domain.StatusComplete, now)

	_, err := svc.RescheduleInspection(context.Background(), RescheduleCommand{AgencyID: agency, InspectionID: "done", NewDate: now})
	assert.True(t, errs.IsValidation(err))
}

func resultFor(t *testing.T, st *memory.Store, id string, r domain.Result) ResultCommand {
	t.Helper()
	seedInspection(t, st, id, "unit-1", domain.StatusPending, now)
	return ResultCommand{AgencyID: agency, ActorID: "u1", InspectionID: id, Result: r}
}

func TestProcessInspectionResult_Fail(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	out, err := svc.ProcessInspectionResult(ctx, resultFor(t, st, "insp-1", domain.ResultFail))
	require.NoError(t, err)

	unit, err := st.Units().Get(ctx, agency, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceNonCompliant, unit.ComplianceStatus)

	in, err := st.Inspections().Get(ctx, agency, "insp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, in.Status)
	require.NotNil(t, in.CompletedAt)

	require.NotNil(t, out.FollowUp)
	assert.Equal(t, 1, auditActions(st, "inspection.follow_up"))
	follow, err := st.Inspections().Get(ctx, agency, out.FollowUp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeReinspection, follow.Type)
	assert.Equal(t, domain.StatusPending, follow.Status)
	require.NotNil(t, follow.ReinspectionDeadline)
	assert.Equal(t, now.Add(30*24*time.Hour), *follow.ReinspectionDeadline)
	assert.Equal(t, *follow.ReinspectionDeadline, *follow.ScheduledDate)
	assert.Nil(t, follow.InspectorID)

	ns, err := st.Notices().ListByInspection(ctx, agency, "insp-1")
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, notices.TypeFailureNotice, ns[0].Type)
}

func TestProcessInspectionResult_Pass(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	out, err := svc.ProcessInspectionResult(ctx, resultFor(t, st, "insp-1", domain.ResultPass))
	require.NoError(t, err)
	assert.Nil(t, out.FollowUp)
	assert.Zero(t, auditActions(st, "inspection.follow_up"))

	unit, err := st.Units().Get(ctx, agency, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceCompliant, unit.ComplianceStatus)
	require.NotNil(t, unit.LastInspectionDate)
	assert.Equal(t, now, *unit.LastInspectionDate)

	ns, err := st.Notices().ListByInspection(ctx, agency, "insp-1")
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestProcessInspectionResult_NoEntry(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	cmd := resultFor(t, st, "insp-1", domain.ResultNoEntry)

	out, err := svc.ProcessInspectionResult(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoEntry, out.Inspection.Status)

	unit, err := st.Units().Get(ctx, agency, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceAbatement, unit.ComplianceStatus, "no entry leaves compliance alone")

	require.NotNil(t, out.FollowUp)
	assert.Equal(t, domain.StatusScheduled, out.FollowUp.Status)
	assert.Equal(t, domain.TypeAnnual, out.FollowUp.Type)
	assert.Equal(t, now.Add(14*24*time.Hour), *out.FollowUp.ScheduledDate)

	sch, err := st.Schedules().LatestForInspection(ctx, agency, out.FollowUp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleScheduled, sch.Status)

	_, err = svc.ProcessInspectionResult(ctx, cmd)
	assert.True(t, errs.IsValidation(err), "a closed attempt cannot take a second result")
}

func TestProcessInspectionResult_StoresExtraDeficiencies(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	cmd := resultFor(t, st, "insp-1", domain.ResultFail)
	cmd.Deficiencies = []domain.Deficiency{{Description: "broken window", Is24Hour: true}}

	_, err := svc.ProcessInspectionResult(ctx, cmd)
	require.NoError(t, err)

	ds, err := st.Deficiencies().ListByInspection(ctx, agency, "insp-1")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, domain.DefaultResponsibility, ds[0].Responsibility)
	assert.Equal(t, now.Add(24*time.Hour), ds[0].DueDate)
}

func TestProcessInspectionResult_ExtraDeficiencyIDsAreMinted(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	seedInspection(t, st, "other", "unit-2", domain.StatusComplete, now)
	require.NoError(t, st.Deficiencies().Insert(ctx, &domain.Deficiency{ID: "def-taken", AgencyID: agency, InspectionID: "other", Status: domain.DeficiencyOpen}))

	cmd := resultFor(t, st, "insp-1", domain.ResultFail)
	cmd.Deficiencies = []domain.Deficiency{{ID: "def-taken", Description: "cracked window"}}
	_, err := svc.ProcessInspectionResult(ctx, cmd)
	require.NoError(t, err)

	ds, err := st.Deficiencies().ListByInspection(ctx, agency, "insp-1")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.NotEqual(t, "def-taken", ds[0].ID)

	kept, err := st.Deficiencies().Get(ctx, agency, "def-taken")
	require.NoError(t, err)
	assert.Equal(t, "other", kept.InspectionID)
}

func TestProcessInspectionResult_BadDeficiencyStatus(t *testing.T) {
	svc, st := setup(t)
	cmd := resultFor(t, st, "insp-1", domain.ResultFail)
	cmd.Deficiencies = []domain.Deficiency{{Description: "x"}, {Description: "y", Status: "gone"}}

	_, err := svc.ProcessInspectionResult(context.Background(), cmd)
	require.True(t, errs.IsValidation(err))
	assert.False(t, errs.IsTransaction(err))
	assert.Equal(t, "deficiencies[1].status", errs.Field(err))
}

func TestProcessInspectionResult_IncompleteChecklist(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	cmd := resultFor(t, st, "insp-1", domain.ResultPass)
	in, err := st.Inspections().Get(ctx, agency, "insp-1")
	require.NoError(t, err)
	in.Checklist.Sections[1].Items = []domain.Item{
		{ID: "stove", Status: domain.ItemPending},
		{ID: "sink", Status: domain.ItemFail},
	}
	require.NoError(t, st.Inspections().Update(ctx, in))

	_, err = svc.ProcessInspectionResult(ctx, cmd)
	require.True(t, errs.IsValidation(err))

	got, err := st.Inspections().Get(ctx, agency, "insp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	unit, err := st.Units().Get(ctx, agency, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplianceAbatement, unit.ComplianceStatus)
	assert.Empty(t, st.AuditEntries())
}

func TestProcessInspectionResult_DraftIsRejected(t *testing.T) {
	svc, st := setup(t)
	seedInspection(t, st, "insp-1", "unit-1", domain.StatusDraft, now)

	for _, r := range []domain.Result{domain.ResultPass, domain.ResultFail, domain.ResultNoEntry} {
		_, err := svc.ProcessInspectionResult(context.Background(), ResultCommand{AgencyID: agency, InspectionID: "insp-1", Result: r})
		assert.True(t, errs.IsValidation(err), r)
	}
}

type failingNotices struct{}

func (failingNotices) GenerateNotice(context.Context, string, string, notices.Type) (*notices.Notice, error) {
	return nil, errors.New("document service down")
}

func TestProcessInspectionResult_NoticeFailureIsIgnored(t *testing.T) {
	svc, st := setup(t)
	svc.Notices = failingNotices{}

	_, err := svc.ProcessInspectionResult(context.Background(), resultFor(t, st, "insp-1", domain.ResultFail))
	assert.NoError(t, err)
}

func TestUnitsDue(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	recent := now.AddDate(0, -2, 0)
	old := now.AddDate(-1, 0, 10)
	u1, _ := st.Units().Get(ctx, agency, "unit-1")
	u1.LastInspectionDate = &old
	require.NoError(t, st.Units().Save(ctx, u1))
	u2, _ := st.Units().Get(ctx, agency, "unit-2")
	u2.LastInspectionDate = &recent
	require.NoError(t, st.Units().Save(ctx, u2))

	due, err := svc.UnitsDue(ctx, agency, 30)
	require.NoError(t, err)
	var ids []string
	for _, u := range due {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"unit-1", "unit-3"}, ids)

	_, err = svc.UnitsDue(ctx, agency, -1)
	assert.True(t, errs.IsValidation(err))
}
