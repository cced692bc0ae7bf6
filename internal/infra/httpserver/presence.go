package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GET /v1/{agency}/presence
func (r *Router) handleOnline(w http.ResponseWriter, req *http.Request) error {
	if r.Presence == nil {
		return unavailable("presence")
	}
	users, err := r.Presence.Online(req.Context(), agencyOf(req))
	if err != nil {
		return err
	}
	if users == nil {
		users = []string{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// POST /v1/{agency}/presence
// Body: {"userId": "..."}; falls back to the X-User-ID header.
func (r *Router) handleConnect(w http.ResponseWriter, req *http.Request) error {
	if r.Presence == nil {
		return unavailable("presence")
	}
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	user := body.UserID
	if user == "" {
		user = actorOf(req)
	}
	if user == "" {
		return bad("userId is required")
	}
	if err := r.Presence.Connect(req.Context(), agencyOf(req), user); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/{agency}/presence/{user}
func (r *Router) handleDisconnect(w http.ResponseWriter, req *http.Request) error {
	if r.Presence == nil {
		return unavailable("presence")
	}
	if err := r.Presence.Disconnect(req.Context(), agencyOf(req), chi.URLParam(req, "user")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
