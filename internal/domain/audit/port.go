package audit

import "context"

// Repository is the audit sink. Entries are never updated or deleted here.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByEntity(ctx context.Context, agency, entityType, entityID string, limit int) ([]*Entry, error)
}
