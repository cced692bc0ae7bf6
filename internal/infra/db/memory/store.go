// Package memory is an in-process Store used by tests and the memory driver.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
	"github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

type key struct{ agency, id string }

type state struct {
	seq          int64
	units        map[key]inspections.Unit
	inspections  map[key]inspections.Inspection
	deficiencies map[key]inspections.Deficiency
	schedules    map[key]scheduleRow
	inspectors   map[key]inspections.Inspector
	applied      map[key]syncs.AppliedChange
	audit        []audit.Entry
}

type scheduleRow struct {
	seq int64
	inspections.Schedule
}

func newState() *state {
	return &state{
		units:        map[key]inspections.Unit{},
		inspections:  map[key]inspections.Inspection{},
		deficiencies: map[key]inspections.Deficiency{},
		schedules:    map[key]scheduleRow{},
		inspectors:   map[key]inspections.Inspector{},
		applied:      map[key]syncs.AppliedChange{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.inspections {
		c.inspections[k] = cloneInspection(v)
	}
	for k, v := range s.deficiencies {
		c.deficiencies[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.inspectors {
		c.inspectors[k] = v
	}
	for k, v := range s.applied {
		c.applied[k] = v
	}
	c.audit = append([]audit.Entry(nil), s.audit...)
	return c
}

// Store keeps everything in maps guarded by one mutex. Transactions hold the
// mutex for their whole duration and restore a snapshot on error.
type Store struct {
	mu      sync.Mutex
	data    *state
	records map[key]syncs.Record
	notices []notices.Notice

	// BeginErr and CommitErr, when set, make WithTx fail the way a broken
	// connection would.
	BeginErr  error
	CommitErr error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newState(), records: map[key]syncs.Record{}}
}

// view binds repositories to the store; locked views run inside WithTx.
type view struct {
	s      *Store
	locked bool
}

func (v view) enter() func() {
	if v.locked {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v view) Units() inspections.UnitRepository { return unitRepo{v} }
func (v view) Inspections() inspections.InspectionRepository { return inspectionRepo{v} }
func (v view) Deficiencies() inspections.DeficiencyRepository { return deficiencyRepo{v} }
func (v view) Schedules() inspections.ScheduleRepository { return scheduleRepo{v} }
func (v view) Inspectors() inspections.InspectorRepository { return inspectorRepo{v} }
func (v view) Audit() audit.Repository { return auditRepo{v} }
func (v view) AppliedChanges() syncs.AppliedChangeRepository { return appliedRepo{v} }

func (s *Store) Units() inspections.UnitRepository { return view{s: s}.Units() }
func (s *Store) Inspections() inspections.InspectionRepository { return view{s: s}.Inspections() }
func (s *Store) Deficiencies() inspections.DeficiencyRepository { return view{s: s}.Deficiencies() }
func (s *Store) Schedules() inspections.ScheduleRepository { return view{s: s}.Schedules() }
func (s *Store) Inspectors() inspections.InspectorRepository { return view{s: s}.Inspectors() }
func (s *Store) Audit() audit.Repository { return view{s: s}.Audit() }
func (s *Store) AppliedChanges() syncs.AppliedChangeRepository { return view{s: s}.AppliedChanges() }
func (s *Store) SyncRecords() syncs.Repository { return recordRepo{s} }
func (s *Store) Notices() notices.Repository { return noticeRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return errs.Tx("begin", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginErr != nil {
		return errs.Tx("begin", s.BeginErr)
	}
	snapshot := s.data.clone()
	if err := fn(view{s: s, locked: true}); err != nil {
		s.data = snapshot
		return err
	}
	if s.CommitErr != nil {
		s.data = snapshot
		return errs.Tx("commit", s.CommitErr)
	}
	return nil
}

// AddInspector seeds an inspector.
func (s *Store) AddInspector(in inspections.Inspector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.inspectors[key{in.AgencyID, in.ID}] = in
}

// AuditEntries returns a copy of the audit log in append order.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.data.audit...)
}

func cloneInspection(in inspections.Inspection) inspections.Inspection {
	sections := make([]inspections.Section, len(in.Checklist.Sections))
	for i, sec := range in.Checklist.Sections {
		sec.Items = append([]inspections.Item(nil), sec.Items...)
		sections[i] = sec
	}
	if in.Checklist.Sections == nil {
		sections = nil
	}
	in.Checklist.Sections = sections
	return in
}

type unitRepo struct{ v view }

func (r unitRepo) Get(_ context.Context, agency, id string) (*inspections.Unit, error) {
	defer r.v.enter()()
	u, ok := r.v.s.data.units[key{agency, id}]
	if !ok {
		return nil, errs.NotFound("unit", id)
	}
	return &u, nil
}

func (r unitRepo) Save(_ context.Context, u *inspections.Unit) error {
	defer r.v.enter()()
	r.v.s.data.units[key{u.AgencyID, u.ID}] = *u
	return nil
}

func (r unitRepo) ListByAgency(_ context.Context, agency string) ([]*inspections.Unit, error) {
	defer r.v.enter()()
	var out []*inspections.Unit
	for k, u := range r.v.s.data.units {
		if k.agency == agency {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type inspectionRepo struct{ v view }

func (r inspectionRepo) Get(_ context.Context, agency, id string) (*inspections.Inspection, error) {
	defer r.v.enter()()
	in, ok := r.v.s.data.inspections[key{agency, id}]
	if !ok {
		return nil, errs.NotFound("inspection", id)
	}
	in = cloneInspection(in)
	return &in, nil
}

func (r inspectionRepo) Insert(_ context.Context, in *inspections.Inspection) error {
	defer r.v.enter()()
	k := key{in.AgencyID, in.ID}
	if _, ok := r.v.s.data.inspections[k]; ok {
		return errDuplicateKey("inspection", in.ID)
	}
	r.v.s.data.inspections[k] = cloneInspection(*in)
	return nil
}

func (r inspectionRepo) Update(_ context.Context, in *inspections.Inspection) error {
	defer r.v.enter()()
	k := key{in.AgencyID, in.ID}
	if _, ok := r.v.s.data.inspections[k]; !ok {
		return errs.NotFound("inspection", in.ID)
	}
	r.v.s.data.inspections[k] = cloneInspection(*in)
	return nil
}

func (r inspectionRepo) ListUnassigned(_ context.Context, agency string, start, end time.Time) ([]inspections.Routable, error) {
	defer r.v.enter()()
	var out []inspections.Routable
	for k, in := range r.v.s.data.inspections {
		if k.agency != agency || in.Status != inspections.StatusPending || in.InspectorID != nil || in.ScheduledDate == nil {
			continue
		}
		d := *in.ScheduledDate
		if d.Before(start) || d.After(end) {
			continue
		}
		u, ok := r.v.s.data.units[key{agency, in.UnitID}]
		if !ok {
			continue
		}
		out = append(out, inspections.Routable{InspectionID: in.ID, UnitID: in.UnitID, ScheduledDate: d.UTC(), ZipCode: u.ZipCode})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].InspectionID < out[j].InspectionID
	})
	return out, nil
}

func (r inspectionRepo) Assign(_ context.Context, agency, id, inspectorID string, at time.Time) error {
	defer r.v.enter()()
	k := key{agency, id}
	in, ok := r.v.s.data.inspections[k]
	if !ok {
		return errs.NotFound("inspection", id)
	}
	in.InspectorID = &inspectorID
	in.UpdatedAt = at
	r.v.s.data.inspections[k] = in
	return nil
}

type deficiencyRepo struct{ v view }

func (r deficiencyRepo) Get(_ context.Context, agency, id string) (*inspections.Deficiency, error) {
	defer r.v.enter()()
	d, ok := r.v.s.data.deficiencies[key{agency, id}]
	if !ok {
		return nil, errs.NotFound("deficiency", id)
	}
	return &d, nil
}

func (r deficiencyRepo) Insert(_ context.Context, d *inspections.Deficiency) error {
	defer r.v.enter()()
	k := key{d.AgencyID, d.ID}
	if _, ok := r.v.s.data.deficiencies[k]; ok {
		return errDuplicateKey("deficiency", d.ID)
	}
	r.v.s.data.deficiencies[k] = *d
	return nil
}

func (r deficiencyRepo) Update(_ context.Context, d *inspections.Deficiency) error {
	defer r.v.enter()()
	k := key{d.AgencyID, d.ID}
	if _, ok := r.v.s.data.deficiencies[k]; !ok {
		return errs.NotFound("deficiency", d.ID)
	}
	r.v.s.data.deficiencies[k] = *d
	return nil
}

func (r deficiencyRepo) Replace(_ context.Context, agency, inspectionID string, ds []inspections.Deficiency) error {
	defer r.v.enter()()
	for k, d := range r.v.s.data.deficiencies {
		if k.agency == agency && d.InspectionID == inspectionID {
			delete(r.v.s.data.deficiencies, k)
		}
	}
	for _, d := range ds {
		r.v.s.data.deficiencies[key{agency, d.ID}] = d
	}
	return nil
}

func (r deficiencyRepo) ListByInspection(_ context.Context, agency, inspectionID string) ([]*inspections.Deficiency, error) {
	defer r.v.enter()()
	out := r.filter(agency, func(d inspections.Deficiency) bool { return d.InspectionID == inspectionID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r deficiencyRepo) List(_ context.Context, agency string, status inspections.DeficiencyStatus) ([]*inspections.Deficiency, error) {
	defer r.v.enter()()
	out := r.filter(agency, func(d inspections.Deficiency) bool { return status == "" || d.Status == status })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r deficiencyRepo) filter(agency string, keep func(inspections.Deficiency) bool) []*inspections.Deficiency {
	var out []*inspections.Deficiency
	for k, d := range r.v.s.data.deficiencies {
		if k.agency == agency && keep(d) {
			d := d
			out = append(out, &d)
		}
	}
	return out
}

type scheduleRepo struct{ v view }

func (r scheduleRepo) Get(_ context.Context, agency, id string) (*inspections.Schedule, error) {
	defer r.v.enter()()
	row, ok := r.v.s.data.schedules[key{agency, id}]
	if !ok {
		return nil, errs.NotFound("schedule", id)
	}
	sch := row.Schedule
	return &sch, nil
}

func (r scheduleRepo) Insert(_ context.Context, sch *inspections.Schedule) error {
	defer r.v.enter()()
	k := key{sch.AgencyID, sch.ID}
	if _, ok := r.v.s.data.schedules[k]; ok {
		return errDuplicateKey("schedule", sch.ID)
	}
	r.v.s.data.seq++
	r.v.s.data.schedules[k] = scheduleRow{seq: r.v.s.data.seq, Schedule: *sch}
	return nil
}

func (r scheduleRepo) Update(_ context.Context, sch *inspections.Schedule) error {
	defer r.v.enter()()
	k := key{sch.AgencyID, sch.ID}
	row, ok := r.v.s.data.schedules[k]
	if !ok {
		return errs.NotFound("schedule", sch.ID)
	}
	row.Schedule = *sch
	r.v.s.data.schedules[k] = row
	return nil
}

func (r scheduleRepo) Delete(_ context.Context, agency, id string) error {
	defer r.v.enter()()
	k := key{agency, id}
	if _, ok := r.v.s.data.schedules[k]; !ok {
		return errs.NotFound("schedule", id)
	}
	delete(r.v.s.data.schedules, k)
	return nil
}

func (r scheduleRepo) LatestForInspection(_ context.Context, agency, inspectionID string) (*inspections.Schedule, error) {
	defer r.v.enter()()
	var best *scheduleRow
	for k, row := range r.v.s.data.schedules {
		if k.agency != agency || row.InspectionID != inspectionID {
			continue
		}
		row := row
		if best == nil || row.CreatedAt.After(best.CreatedAt) ||
			(row.CreatedAt.Equal(best.CreatedAt) && row.seq > best.seq) {
			best = &row
		}
	}
	if best == nil {
		return nil, errs.NotFound("schedule", "inspection "+inspectionID)
	}
	sch := best.Schedule
	return &sch, nil
}

type inspectorRepo struct{ v view }

func (r inspectorRepo) ListActive(_ context.Context, agency string) ([]*inspections.Inspector, error) {
	defer r.v.enter()()
	var out []*inspections.Inspector
	for k, in := range r.v.s.data.inspectors {
		if k.agency == agency && in.Active {
			in := in
			out = append(out, &in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type auditRepo struct{ v view }

func (r auditRepo) Append(_ context.Context, e *audit.Entry) error {
	defer r.v.enter()()
	r.v.s.data.audit = append(r.v.s.data.audit, *e)
	return nil
}

func (r auditRepo) ListByEntity(_ context.Context, agency, entityType, entityID string, limit int) ([]*audit.Entry, error) {
	defer r.v.enter()()
	var out []*audit.Entry
	for i := len(r.v.s.data.audit) - 1; i >= 0; i-- {
		e := r.v.s.data.audit[i]
		if e.AgencyID == agency && e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type appliedRepo struct{ v view }

func (r appliedRepo) Get(_ context.Context, agency, changeID string) (*syncs.AppliedChange, error) {
	defer r.v.enter()()
	a, ok := r.v.s.data.applied[key{agency, changeID}]
	if !ok {
		return nil, errs.NotFound("applied change", changeID)
	}
	return &a, nil
}

func (r appliedRepo) Record(_ context.Context, a *syncs.AppliedChange) error {
	defer r.v.enter()()
	k := key{a.AgencyID, a.ChangeID}
	if _, ok := r.v.s.data.applied[k]; ok {
		return errDuplicateKey("applied change", a.ChangeID)
	}
	r.v.s.data.applied[k] = *a
	return nil
}

// Sync records and notices live outside the transactional state.

type recordRepo struct{ s *Store }

func (r recordRepo) Create(_ context.Context, rec *syncs.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.records[key{rec.AgencyID, rec.ID}] = *rec
	return nil
}

func (r recordRepo) Finish(_ context.Context, rec *syncs.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key{rec.AgencyID, rec.ID}
	if _, ok := r.s.records[k]; !ok {
		return errs.NotFound("sync record", rec.ID)
	}
	r.s.records[k] = *rec
	return nil
}

func (r recordRepo) Get(_ context.Context, agency, id string) (*syncs.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[key{agency, id}]
	if !ok {
		return nil, errs.NotFound("sync record", id)
	}
	return &rec, nil
}

func (r recordRepo) Prune(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, rec := range r.s.records {
		if rec.CreatedAt.Before(before) {
			delete(r.s.records, k)
			n++
		}
	}
	return n, nil
}

type noticeRepo struct{ s *Store }

func (r noticeRepo) Save(_ context.Context, n *notices.Notice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notices {
		if r.s.notices[i].ID == n.ID {
			r.s.notices[i] = *n
			return nil
		}
	}
	r.s.notices = append(r.s.notices, *n)
	return nil
}

func (r noticeRepo) ListByInspection(_ context.Context, agency, inspectionID string) ([]*notices.Notice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*notices.Notice
	for _, n := range r.s.notices {
		if n.AgencyID == agency && n.InspectionID == inspectionID {
			n := n
			out = append(out, &n)
		}
	}
	return out, nil
}
