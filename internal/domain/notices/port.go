package notices

import "context"

// Generator requests a notice for an inspection and returns it in Pending status.
type Generator interface {
	GenerateNotice(ctx context.Context, agency, inspectionID string, t Type) (*Notice, error)
}

type Repository interface {
	Save(ctx context.Context, n *Notice) error
	ListByInspection(ctx context.Context, agency, inspectionID string) ([]*Notice, error)
}
