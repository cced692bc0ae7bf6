package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/inspection-sync/internal/application/ledger"
	"github.com/bryanwahyu/inspection-sync/internal/infra/storage"
)

// GET /v1/{agency}/deficiencies?status=open
func (r *Router) handleDeficiencies(w http.ResponseWriter, req *http.Request) error {
	if r.Ledger == nil {
		return unavailable("ledger")
	}
	list, err := r.Ledger.List(req.Context(), agencyOf(req), req.URL.Query().Get("status"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{agency}/deficiencies/export?status=open
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	if r.Ledger == nil {
		return unavailable("ledger")
	}
	status := req.URL.Query().Get("status")
	raw, err := r.Ledger.Export(req.Context(), agencyOf(req), status)
	if err != nil {
		return err
	}
	name := "deficiencies.xlsx"
	if status != "" {
		name = fmt.Sprintf("deficiencies-%s.xlsx", status)
	}
	w.Header().Set("Content-Type", storage.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(raw)
	return err
}

// POST /v1/{agency}/deficiencies/{id}/photos (multipart field "photo")
func (r *Router) handlePhoto(w http.ResponseWriter, req *http.Request) error {
	if r.Ledger == nil {
		return unavailable("ledger")
	}
	req.Body = http.MaxBytesReader(w, req.Body, ledger.MaxPhotoBytes+1<<20)
	if err := req.ParseMultipartForm(ledger.MaxPhotoBytes); err != nil {
		return bad("invalid multipart body: " + err.Error())
	}
	file, hdr, err := req.FormFile("photo")
	if err != nil {
		return bad("photo field is required")
	}
	defer file.Close()

	d, err := r.Ledger.AddPhoto(req.Context(), ledger.PhotoCommand{
		AgencyID:     agencyOf(req),
		ActorID:      actorOf(req),
		DeficiencyID: chi.URLParam(req, "id"),
		Filename:     hdr.Filename,
		ContentType:  hdr.Header.Get("Content-Type"),
		Body:         file,
		Size:         hdr.Size,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, d)
}
