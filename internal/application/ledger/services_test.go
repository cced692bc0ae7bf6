package ledger

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db/memory"
)

type fakeObjects struct {
	keys  []string
	types []string
	body  []string
	err   error
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	raw, _ := io.ReadAll(r)
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	f.body = append(f.body, string(raw))
	return "https://objects.test/" + key, nil
}

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Inspections().Insert(ctx, &domain.Inspection{
		ID: "insp-1", AgencyID: "a1", UnitID: "unit-1", Type: domain.TypeAnnual, Status: domain.StatusComplete,
		Checklist: domain.Checklist{Sections: []domain.Section{{ID: domain.SectionKitchen, Items: []domain.Item{
			{ID: "stove", Status: domain.ItemFail, Comment: "burner out"},
		}}}},
	}))
	require.NoError(t, st.Deficiencies().Insert(ctx, &domain.Deficiency{
		ID: "def-1", AgencyID: "a1", InspectionID: "insp-1", SectionID: domain.SectionKitchen, ItemID: "stove",
		Description: "stove: burner out", Status: domain.DeficiencyOpen, DueDate: now.Add(30 * 24 * time.Hour),
	}))
	require.NoError(t, st.Deficiencies().Insert(ctx, &domain.Deficiency{
		ID: "def-2", AgencyID: "a1", InspectionID: "insp-1", SectionID: domain.SectionKitchen, ItemID: "sink",
		Status: domain.DeficiencyResolved, DueDate: now,
	}))
	return st
}

func TestList(t *testing.T) {
	svc := &Service{Store: seed(t), Clock: application.FixedClock{At: now}}

	all, err := svc.List(context.Background(), "a1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.List(context.Background(), "a1", " OPEN ")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "def-1", open[0].ID)

	_, err = svc.List(context.Background(), "a1", "closed")
	assert.True(t, errs.IsValidation(err))
}

func TestExportToObject(t *testing.T) {
	objects := &fakeObjects{}
	var rendered int
	svc := &Service{
		Store:   seed(t),
		Objects: objects,
		Clock:   application.FixedClock{At: now},
		Render: func(ds []*domain.Deficiency, at time.Time) ([]byte, error) {
			rendered = len(ds)
			assert.Equal(t, now, at)
			return []byte("xlsx"), nil
		},
	}

	url, err := svc.ExportToObject(context.Background(), "a1", "open")
	require.NoError(t, err)
	assert.Equal(t, 1, rendered)
	require.Len(t, objects.keys, 1)
	assert.Equal(t, "a1/exports/deficiencies-open-20260302T100000Z.xlsx", objects.keys[0])
	assert.Equal(t, "https://objects.test/"+objects.keys[0], url)
	assert.Equal(t, "xlsx", objects.body[0])

	_, err = (&Service{Store: seed(t), Clock: application.FixedClock{At: now}}).ExportToObject(context.Background(), "a1", "")
	assert.Error(t, err)
}

func TestAddPhoto(t *testing.T) {
	st := seed(t)
	objects := &fakeObjects{}
	svc := &Service{Store: st, Objects: objects, Clock: application.FixedClock{At: now}}

	d, err := svc.AddPhoto(context.Background(), PhotoCommand{
		AgencyID: "a1", ActorID: "u1", DeficiencyID: "def-1",
		Filename: "Stove.JPG", ContentType: "image/jpeg", Body: strings.NewReader("img"), Size: 3,
	})
	require.NoError(t, err)
	require.Len(t, objects.keys, 1)
	assert.True(t, strings.HasPrefix(objects.keys[0], "a1/deficiencies/def-1/"))
	assert.True(t, strings.HasSuffix(objects.keys[0], ".jpg"))
	assert.Equal(t, []string{"https://objects.test/" + objects.keys[0]}, d.Photos)

	in, err := st.Inspections().Get(context.Background(), "a1", "insp-1")
	require.NoError(t, err)
	assert.Equal(t, d.Photos, in.Checklist.Sections[0].Items[0].Photos, "photo is mirrored onto the checklist item")

	entries := st.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "deficiency.photo", entries[0].Action)
}

func TestAddPhoto_Rejects(t *testing.T) {
	st := seed(t)
	svc := &Service{Store: st, Objects: &fakeObjects{}, Clock: application.FixedClock{At: now}}
	ctx := context.Background()

	_, err := svc.AddPhoto(ctx, PhotoCommand{AgencyID: "a1", DeficiencyID: "def-1"})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.AddPhoto(ctx, PhotoCommand{AgencyID: "a1", DeficiencyID: "def-1", Body: strings.NewReader("x"), Size: MaxPhotoBytes + 1})
	assert.True(t, errs.IsValidation(err))

	_, err = svc.AddPhoto(ctx, PhotoCommand{AgencyID: "a1", DeficiencyID: "missing", Body: strings.NewReader("x"), Size: 1})
	assert.True(t, errs.IsNotFound(err))

	failing := &Service{Store: st, Objects: &fakeObjects{err: errors.New("bucket gone")}, Clock: application.FixedClock{At: now}}
	_, err = failing.AddPhoto(ctx, PhotoCommand{AgencyID: "a1", DeficiencyID: "def-1", Body: strings.NewReader("x"), Size: 1})
	assert.ErrorContains(t, err, "bucket gone")
	assert.Empty(t, st.AuditEntries())
}
