package presence

import (
	"context"
	"time"
)

// Event is fanned out to online collaborators of an agency.
type Event struct {
	Kind      string    `json:"kind"`
	AgencyID  string    `json:"agency_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	SyncID    string    `json:"sync_id,omitempty"`
	Processed int       `json:"processed,omitempty"`
	At        time.Time `json:"at"`
}

const KindSyncCompleted = "sync_completed"

// Registry tracks which users of an agency are online. Users are added on
// connect and removed on disconnect; membership never crosses agencies.
type Registry interface {
	Connect(ctx context.Context, agency, user string) error
	Disconnect(ctx context.Context, agency, user string) error
	Online(ctx context.Context, agency string) ([]string, error)
}

// Broadcaster delivers events on a best-effort basis.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
}
