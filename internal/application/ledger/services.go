package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
)

// MaxPhotoBytes caps a single uploaded photo.
const MaxPhotoBytes = 10 << 20

// ObjectStore is implemented by the MinIO adapter.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Renderer turns the ledger into a document.
type Renderer func(ds []*domain.Deficiency, generatedAt time.Time) ([]byte, error)

// Service reads the deficiency ledger and attaches evidence to it.
type Service struct {
	Store   store.Store
	Objects ObjectStore
	Render  Renderer
	Clock   application.Clock
	Log     *zap.Logger
}

func parseStatus(status string) (domain.DeficiencyStatus, error) {
	st := domain.DeficiencyStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return "", errs.Invalid("status", "unknown deficiency status %q", status)
	}
	return st, nil
}

// List returns the agency's deficiencies; an empty status selects all.
func (s *Service) List(ctx context.Context, agency, status string) ([]*domain.Deficiency, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.Store.Deficiencies().List(ctx, agency, st)
}

// Export renders the filtered ledger.
func (s *Service) Export(ctx context.Context, agency, status string) ([]byte, error) {
	if s.Render == nil {
		return nil, fmt.Errorf("no ledger renderer configured")
	}
	ds, err := s.List(ctx, agency, status)
	if err != nil {
		return nil, err
	}
	return s.Render(ds, s.Clock.Now())
}

// ExportToObject renders the ledger and stores it, returning the object URL.
func (s *Service) ExportToObject(ctx context.Context, agency, status string) (string, error) {
	if s.Objects == nil {
		return "", fmt.Errorf("no object store configured")
	}
	raw, err := s.Export(ctx, agency, status)
	if err != nil {
		return "", err
	}
	name := "all"
	if status != "" {
		name = strings.ToLower(status)
	}
	key := fmt.Sprintf("%s/exports/deficiencies-%s-%s.xlsx", agency, name, s.Clock.Now().Format("20060102T150405Z"))
	url, err := s.Objects.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), "")
	if err != nil {
		return "", err
	}
	s.logger().Info("ledger exported", zap.String("agency_id", agency), zap.String("url", url), zap.Int("bytes", len(raw)))
	return url, nil
}

// PhotoCommand uploads one photo for a deficiency.
type PhotoCommand struct {
	AgencyID     string
	ActorID      string
	DeficiencyID string
	Filename     string
	ContentType  string
	Body         io.Reader
	Size         int64
}

// AddPhoto stores the photo and appends its URL to the deficiency and to
// the checklist item it was derived from, so regenerating the ledger keeps it.
func (s *Service) AddPhoto(ctx context.Context, cmd PhotoCommand) (*domain.Deficiency, error) {
	if s.Objects == nil {
		return nil, fmt.Errorf("no object store configured")
	}
	if cmd.Body == nil {
		return nil, errs.Invalid("photo", "photo body is required")
	}
	if cmd.Size > MaxPhotoBytes {
		return nil, errs.Invalid("photo", "photo exceeds %d bytes", MaxPhotoBytes)
	}
	if _, err := s.Store.Deficiencies().Get(ctx, cmd.AgencyID, cmd.DeficiencyID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(cmd.Filename))
	key := fmt.Sprintf("%s/deficiencies/%s/%s%s", cmd.AgencyID, cmd.DeficiencyID, uuid.NewString(), ext)
	url, err := s.Objects.Put(ctx, key, cmd.Body, cmd.Size, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	now := s.Clock.Now()
	var out *domain.Deficiency
	err = s.Store.WithTx(ctx, func(tx store.Repos) error {
		d, err := tx.Deficiencies().Get(ctx, cmd.AgencyID, cmd.DeficiencyID)
		if err != nil {
			return err
		}
		before := *d
		d.Photos = append(append([]string(nil), d.Photos...), url)
		if err := tx.Deficiencies().Update(ctx, d); err != nil {
			return fmt.Errorf("update deficiency: %w", err)
		}

		in, err := tx.Inspections().Get(ctx, cmd.AgencyID, d.InspectionID)
		if err != nil {
			return err
		}
		if attachToItem(&in.Checklist, d.SectionID, d.ItemID, url) {
			if err := tx.Inspections().Update(ctx, in); err != nil {
				return fmt.Errorf("update inspection: %w", err)
			}
		}
		out = d
		return application.AppendAudit(ctx, tx, cmd.AgencyID, cmd.ActorID, "deficiency.photo", "deficiency", d.ID, &before, d, now)
	})
	if err != nil {
		return nil, errs.Tx("add photo", err)
	}
	return out, nil
}

func attachToItem(c *domain.Checklist, sectionID, itemID, url string) bool {
	for i := range c.Sections {
		if c.Sections[i].ID != sectionID {
			continue
		}
		items := c.Sections[i].Items
		for j := range items {
			if items[j].ID == itemID {
				items[j].Photos = append(append([]string(nil), items[j].Photos...), url)
				return true
			}
		}
	}
	return false
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
