package httpserver

import "net/http"

// POST /v1/{agency}/ai/suggest
// Body: {"text": "...", "itemLabel": "..."}
func (r *Router) handleSuggest(w http.ResponseWriter, req *http.Request) error {
	if r.AI == nil {
		return unavailable("ai")
	}
	var body struct {
		Text      string `json:"text"`
		ItemLabel string `json:"itemLabel"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	sug, err := r.AI.Suggest(req.Context(), body.ItemLabel, body.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sug)
}
