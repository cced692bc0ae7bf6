package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

func day(n int) time.Time {
	return time.Date(2026, 6, n, 9, 0, 0, 0, time.UTC)
}

func TestClusterInspections(t *testing.T) {
	items := []domain.Routable{
		{InspectionID: "a", ScheduledDate: day(2), ZipCode: "94117"},
		{InspectionID: "b", ScheduledDate: day(1), ZipCode: "94110"},
		{InspectionID: "c", ScheduledDate: day(2), ZipCode: " "},
		{InspectionID: "d", ScheduledDate: day(2), ZipCode: "94117"},
		{InspectionID: "e", ScheduledDate: day(1).Add(6 * time.Hour), ZipCode: "94110"},
	}

	got := ClusterInspections(items, nil)
	require.Len(t, got, 3)
	assert.Equal(t, Cluster{Date: "2026-06-01", ZipCode: "94110", InspectionIDs: []string{"b", "e"}}, got[0])
	assert.Equal(t, Cluster{Date: "2026-06-02", ZipCode: "94117", InspectionIDs: []string{"a", "d"}}, got[1])
	assert.Equal(t, Cluster{Date: "2026-06-02", ZipCode: UnknownZip, InspectionIDs: []string{"c"}}, got[2])

	assert.Empty(t, ClusterInspections(nil, nil))
}

func TestClusterInspections_AgencyZone(t *testing.T) {
	pacific := time.FixedZone("PDT", -7*3600)
	evening := time.Date(2026, 7, 4, 2, 30, 0, 0, time.UTC) // 19:30 on July 3rd in PDT
	morning := time.Date(2026, 7, 3, 16, 0, 0, 0, time.UTC)
	items := []domain.Routable{
		{InspectionID: "m", ScheduledDate: morning, ZipCode: "94110"},
		{InspectionID: "e", ScheduledDate: evening, ZipCode: "94110"},
	}

	got := ClusterInspections(items, pacific)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-07-03", got[0].Date)
	assert.Equal(t, []string{"m", "e"}, got[0].InspectionIDs)

	assert.Len(t, ClusterInspections(items, nil), 2, "in UTC the evening visit falls on the next day")
}

func seedRoute(t *testing.T) (*Service, func(string) *domain.Inspection) {
	t.Helper()
	svc, st := setup(t)
	st.AddInspector(domain.Inspector{ID: "insp-b", AgencyID: agency, Name: "Bea", Active: true})
	st.AddInspector(domain.Inspector{ID: "insp-a", AgencyID: agency, Name: "Ann", Active: true})
	st.AddInspector(domain.Inspector{ID: "insp-z", AgencyID: agency, Name: "Zed", Active: false})

	seedInspection(t, st, "i1", "unit-1", domain.StatusPending, day(3))
	seedInspection(t, st, "i2", "unit-1", domain.StatusPending, day(3))
	seedInspection(t, st, "i3", "unit-2", domain.StatusPending, day(3))
	seedInspection(t, st, "i4", "unit-2", domain.StatusPending, day(3))
	seedInspection(t, st, "draft", "unit-1", domain.StatusDraft, day(3))
	seedInspection(t, st, "later", "unit-1", domain.StatusPending, day(20))

	get := func(id string) *domain.Inspection {
		in, err := st.Inspections().Get(context.Background(), agency, id)
		require.NoError(t, err)
		return in
	}
	return svc, get
}

func TestAutoRoute_OneInspectorPerCluster(t *testing.T) {
	svc, get := seedRoute(t)

	res, err := svc.AutoRoute(context.Background(), AutoRouteCommand{AgencyID: agency, Start: day(1), End: day(10)})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Assignments)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "insp-a", res.Clusters[0].InspectorID)
	assert.Equal(t, "insp-b", res.Clusters[1].InspectorID)
	assert.Equal(t, 0, res.NextOffset)

	for _, id := range []string{"i1", "i2"} {
		in := get(id)
		require.NotNil(t, in.InspectorID)
		assert.Equal(t, "insp-a", *in.InspectorID)
		assert.Equal(t, domain.StatusPending, in.Status)
	}
	for _, id := range []string{"i3", "i4"} {
		assert.Equal(t, "insp-b", *get(id).InspectorID)
	}
	assert.Nil(t, get("draft").InspectorID)
	assert.Nil(t, get("later").InspectorID)

	again, err := svc.AutoRoute(context.Background(), AutoRouteCommand{AgencyID: agency, Start: day(1), End: day(10)})
	require.NoError(t, err)
	assert.Zero(t, again.Assignments, "assigned work is not routed twice")
	assert.Empty(t, again.Clusters)
}

func TestAutoRoute_OffsetRotates(t *testing.T) {
	svc, get := seedRoute(t)

	res, err := svc.AutoRoute(context.Background(), AutoRouteCommand{AgencyID: agency, Start: day(1), End: day(25), Offset: 1})
	require.NoError(t, err)
	require.Len(t, res.Clusters, 3)
	assert.Equal(t, "insp-b", res.Clusters[0].InspectorID)
	assert.Equal(t, "insp-a", res.Clusters[1].InspectorID)
	assert.Equal(t, "insp-b", res.Clusters[2].InspectorID)
	assert.Equal(t, 0, res.NextOffset)
	assert.Equal(t, "insp-b", *get("later").InspectorID)
}

func TestAutoRoute_NoInspectors(t *testing.T) {
	svc, st := setup(t)
	seedInspection(t, st, "i1", "unit-1", domain.StatusPending, day(3))

	res, err := svc.AutoRoute(context.Background(), AutoRouteCommand{AgencyID: agency, Start: day(1), End: day(10)})
	require.NoError(t, err)
	assert.Equal(t, MsgNoInspectors, res.Message)
	assert.Zero(t, res.Assignments)

	in, err := st.Inspections().Get(context.Background(), agency, "i1")
	require.NoError(t, err)
	assert.Nil(t, in.InspectorID)
}

func TestAutoRoute_Validation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AutoRoute(ctx, AutoRouteCommand{AgencyID: agency, Start: day(5), End: day(1)})
	assert.True(t, errs.IsValidation(err))
	_, err = svc.AutoRoute(ctx, AutoRouteCommand{AgencyID: agency, End: day(1)})
	assert.True(t, errs.IsValidation(err))
	_, err = svc.AutoRoute(ctx, AutoRouteCommand{AgencyID: agency, Start: day(1), End: day(2), Offset: -1})
	assert.True(t, errs.IsValidation(err))
}
