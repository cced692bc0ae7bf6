package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
)

// UnknownZip groups inspections whose unit has no zip code.
const UnknownZip = "UNKNOWN"

// MsgNoInspectors is reported when an agency has nobody to route work to.
const MsgNoInspectors = "no inspectors available"

// Cluster is a set of inspections sharing a day and a zip code.
type Cluster struct {
	Date          string   `json:"date"`
	ZipCode       string   `json:"zipCode"`
	InspectorID   string   `json:"inspectorId,omitempty"`
	InspectionIDs []string `json:"inspectionIds"`
}

// ClusterInspections groups routable inspections by (day, zip), where day is
// the calendar date in loc (UTC when nil). Clusters are ordered by date then
// zip code; members keep their input order.
func ClusterInspections(items []domain.Routable, loc *time.Location) []Cluster {
	if loc == nil {
		loc = time.UTC
	}
	index := map[string]int{}
	var out []Cluster
	for _, it := range items {
		day := it.ScheduledDate.In(loc).Format("2006-01-02")
		zip := strings.TrimSpace(it.ZipCode)
		if zip == "" {
			zip = UnknownZip
		}
		key := day + "|" + zip
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Cluster{Date: day, ZipCode: zip})
		}
		out[i].InspectionIDs = append(out[i].InspectionIDs, it.InspectionID)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Date != out[b].Date {
			return out[a].Date < out[b].Date
		}
		return out[a].ZipCode < out[b].ZipCode
	})
	return out
}

// AutoRouteCommand selects the window to route. Offset is the position in
// the inspector rotation the first cluster receives; callers persist
// NextOffset between runs to keep the rotation fair.
type AutoRouteCommand struct {
	AgencyID string
	ActorID  string
	Start    time.Time
	End      time.Time
	Offset   int
}

type AutoRouteResult struct {
	Assignments int       `json:"assignments"`
	Clusters    []Cluster `json:"clusters"`
	NextOffset  int       `json:"nextOffset"`
	Message     string    `json:"message,omitempty"`
}

// AutoRoute assigns one inspector per (day, zip) cluster of unassigned
// pending inspections, cycling through the agency's active inspectors.
// The whole run is one transaction.
func (s *Service) AutoRoute(ctx context.Context, cmd AutoRouteCommand) (AutoRouteResult, error) {
	if cmd.Start.IsZero() || cmd.End.IsZero() {
		return AutoRouteResult{}, errs.Invalid("range", "start and end dates are required")
	}
	if cmd.End.Before(cmd.Start) {
		return AutoRouteResult{}, errs.Invalid("range", "end date is before start date")
	}
	if cmd.Offset < 0 {
		return AutoRouteResult{}, errs.Invalid("offset", "offset must not be negative")
	}

	now := s.Clock.Now()
	var out AutoRouteResult
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		inspectors, err := tx.Inspectors().ListActive(ctx, cmd.AgencyID)
		if err != nil {
			return fmt.Errorf("list inspectors: %w", err)
		}
		if len(inspectors) == 0 {
			out = AutoRouteResult{Clusters: []Cluster{}, Message: MsgNoInspectors}
			return nil
		}

		items, err := tx.Inspections().ListUnassigned(ctx, cmd.AgencyID, cmd.Start, cmd.End)
		if err != nil {
			return fmt.Errorf("list unassigned inspections: %w", err)
		}
		dates := make(map[string]time.Time, len(items))
		for _, it := range items {
			dates[it.InspectionID] = it.ScheduledDate
		}

		clusters := ClusterInspections(items, s.Location)
		n := len(inspectors)
		assigned := 0
		for i := range clusters {
			inspector := inspectors[(cmd.Offset+i)%n]
			clusters[i].InspectorID = inspector.ID
			for _, id := range clusters[i].InspectionIDs {
				if err := tx.Inspections().Assign(ctx, cmd.AgencyID, id, inspector.ID, now); err != nil {
					return fmt.Errorf("assign inspection %s: %w", id, err)
				}
				inspectorID := inspector.ID
				sch := &domain.Schedule{
					ID:           uuid.NewString(),
					AgencyID:     cmd.AgencyID,
					InspectionID: id,
					InspectorID:  &inspectorID,
					Date:         dates[id],
					Status:       domain.ScheduleScheduled,
					Notes:        fmt.Sprintf("auto-routed: %s cluster %s", clusters[i].Date, clusters[i].ZipCode),
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := tx.Schedules().Insert(ctx, sch); err != nil {
					return fmt.Errorf("insert schedule for %s: %w", id, err)
				}
				if err := application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "inspection.auto_route", "inspection", id, nil,
					map[string]string{"inspector_id": inspector.ID, "cluster": clusters[i].Date + "/" + clusters[i].ZipCode}, now); err != nil {
					return err
				}
				assigned++
			}
		}
		if clusters == nil {
			clusters = []Cluster{}
		}
		out = AutoRouteResult{
			Assignments: assigned,
			Clusters:    clusters,
			NextOffset:  (cmd.Offset + len(clusters)) % n,
		}
		return nil
	})
	if err != nil {
		return AutoRouteResult{}, errs.Tx("auto-route", err)
	}

	if out.Message != "" {
		s.logger().Warn("auto-route skipped", zap.String("agency_id", cmd.AgencyID), zap.String("reason", out.Message))
	} else {
		s.logger().Info("auto-route finished",
			zap.String("agency_id", cmd.AgencyID),
			zap.Int("clusters", len(out.Clusters)),
			zap.Int("assignments", out.Assignments),
		)
	}
	return out, nil
}
