package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/inspection-sync/internal/application/scheduling"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/middleware"
)

// maxRouteWindow bounds a single auto-route run.
const maxRouteWindow = 92 * 24 * time.Hour

// POST /v1/{agency}/schedules
func (r *Router) handleSchedule(w http.ResponseWriter, req *http.Request) error {
	if r.Scheduling == nil {
		return unavailable("scheduling")
	}
	var body struct {
		UnitID         string  `json:"unitId"`
		InspectionType string  `json:"inspectionType"`
		Date           string  `json:"date"`
		Time           string  `json:"time"`
		InspectorID    *string `json:"inspectorId"`
		Notes          string  `json:"notes"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	date, err := middleware.ParseDate(body.Date)
	if err != nil {
		return bad(err.Error())
	}

	res, err := r.Scheduling.ScheduleInspection(req.Context(), scheduling.ScheduleCommand{
		AgencyID:    agencyOf(req),
		ActorID:     actorOf(req),
		UnitID:      body.UnitID,
		Type:        domain.Type(body.InspectionType),
		Date:        date,
		Time:        body.Time,
		InspectorID: body.InspectorID,
		Notes:       middleware.SanitizeString(body.Notes),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, res)
}

// POST /v1/{agency}/inspections/{id}/reschedule
// Body: {"newDate": "2026-05-01", "reason": "..."}
func (r *Router) handleReschedule(w http.ResponseWriter, req *http.Request) error {
	if r.Scheduling == nil {
		return unavailable("scheduling")
	}
	var body struct {
		NewDate string `json:"newDate"`
		Reason  string `json:"reason"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	date, err := middleware.ParseDate(body.NewDate)
	if err != nil {
		return bad(err.Error())
	}

	res, err := r.Scheduling.RescheduleInspection(req.Context(), scheduling.RescheduleCommand{
		AgencyID:     agencyOf(req),
		ActorID:      actorOf(req),
		InspectionID: chi.URLParam(req, "id"),
		NewDate:      date,
		Reason:       middleware.SanitizeString(body.Reason),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /v1/{agency}/inspections/{id}/result
// Body: {"result": "Pass|Fail|No Entry", "deficiencies": [...]}
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	if r.Scheduling == nil {
		return unavailable("scheduling")
	}
	var body struct {
		Result       string              `json:"result"`
		Deficiencies []domain.Deficiency `json:"deficiencies"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}

	res, err := r.Scheduling.ProcessInspectionResult(req.Context(), scheduling.ResultCommand{
		AgencyID:     agencyOf(req),
		ActorID:      actorOf(req),
		InspectionID: chi.URLParam(req, "id"),
		Result:       domain.Result(body.Result),
		Deficiencies: body.Deficiencies,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/{agency}/inspections/{id}/notices
func (r *Router) handleNotices(w http.ResponseWriter, req *http.Request) error {
	if r.Notices == nil {
		return unavailable("notices")
	}
	list, err := r.Notices.List(req.Context(), agencyOf(req), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/{agency}/autoroute
// Body: {"startDate": "2026-05-01", "endDate": "2026-05-07", "offset": 0}
func (r *Router) handleAutoRoute(w http.ResponseWriter, req *http.Request) error {
	if r.Scheduling == nil {
		return unavailable("scheduling")
	}
	var body struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Offset    int    `json:"offset"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	start, err := middleware.ParseDateIn(body.StartDate, r.Scheduling.Location)
	if err != nil {
		return bad(err.Error())
	}
	end, err := middleware.ParseDateIn(body.EndDate, r.Scheduling.Location)
	if err != nil {
		return bad(err.Error())
	}
	// A plain end date covers the whole day.
	if len(body.EndDate) == len("2006-01-02") {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if err := middleware.ValidateRange(start, end, maxRouteWindow); err != nil {
		return bad(err.Error())
	}

	res, err := r.Scheduling.AutoRoute(req.Context(), scheduling.AutoRouteCommand{
		AgencyID: agencyOf(req),
		ActorID:  actorOf(req),
		Start:    start,
		End:      end,
		Offset:   body.Offset,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/{agency}/units/due?days=30
func (r *Router) handleUnitsDue(w http.ResponseWriter, req *http.Request) error {
	if r.Scheduling == nil {
		return unavailable("scheduling")
	}
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	units, err := r.Scheduling.UnitsDue(req.Context(), agencyOf(req), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"units": units,
		"count": len(units),
	})
}
