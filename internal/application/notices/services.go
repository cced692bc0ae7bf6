package notices

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/notices"
)

// Service persists notice requests in Pending status for the delivery job.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

func NewService(repo domain.Repository, clock application.Clock) *Service {
	return &Service{Repo: repo, Clock: clock}
}

// GenerateNotice implements domain.Generator.
func (s *Service) GenerateNotice(ctx context.Context, agency, inspectionID string, t domain.Type) (*domain.Notice, error) {
	if !t.Valid() {
		return nil, errs.Invalid("type", "unknown notice type %q", t)
	}
	if inspectionID == "" {
		return nil, errs.Invalid("inspectionId", "inspection id is required")
	}
	n := &domain.Notice{
		ID:           uuid.NewString(),
		AgencyID:     agency,
		InspectionID: inspectionID,
		Type:         t,
		Status:       domain.StatusPending,
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("save notice: %w", err)
	}
	return n, nil
}

// List returns the notices requested for an inspection.
func (s *Service) List(ctx context.Context, agency, inspectionID string) ([]*domain.Notice, error) {
	return s.Repo.ListByInspection(ctx, agency, inspectionID)
}
