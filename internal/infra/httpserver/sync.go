package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appsyncs "github.com/bryanwahyu/inspection-sync/internal/application/syncs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

// POST /v1/{agency}/sync
// Body: {"deviceId": "...", "userId": "...", "clientTimestamp": "...", "changes": [...]}
func (r *Router) handleSync(w http.ResponseWriter, req *http.Request) error {
	if r.Sync == nil {
		return unavailable("sync")
	}
	var body struct {
		DeviceID        string          `json:"deviceId"`
		UserID          string          `json:"userId"`
		ClientTimestamp time.Time       `json:"clientTimestamp"`
		Changes         []domain.Change `json:"changes"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	// The audited actor comes from the authenticated request; a device-reported
	// user id is only logged.
	user := actorOf(req)
	if body.UserID != "" && body.UserID != user {
		r.Log.Info("sync user hint differs from actor",
			zap.String("actor", user),
			zap.String("user_hint", body.UserID),
			zap.String("device_id", body.DeviceID),
		)
	}

	res, err := r.Sync.Process(req.Context(), appsyncs.SyncCommand{
		AgencyID:        agencyOf(req),
		UserID:          user,
		DeviceID:        body.DeviceID,
		ClientTimestamp: body.ClientTimestamp,
		Changes:         body.Changes,
	})
	if err != nil {
		// An aborted batch still reports what happened to every change.
		if errs.IsTransaction(err) && res.SyncID != "" {
			w.Header().Set("Retry-After", "5")
			return writeJSON(w, http.StatusServiceUnavailable, res)
		}
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/{agency}/sync/{id}
func (r *Router) handleGetSync(w http.ResponseWriter, req *http.Request) error {
	if r.Sync == nil {
		return unavailable("sync")
	}
	rec, err := r.Sync.Get(req.Context(), agencyOf(req), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}
