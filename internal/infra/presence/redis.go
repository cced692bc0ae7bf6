package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/domain/presence"
)

// NewClient builds the shared go-redis client.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Hub keeps one Redis set of online users per agency and publishes events
// on a per-agency channel.
type Hub struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

var (
	_ presence.Registry    = (*Hub)(nil)
	_ presence.Broadcaster = (*Hub)(nil)
)

func NewHub(rdb *redis.Client, prefix string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{rdb: rdb, prefix: prefix, log: log}
}

func (h *Hub) setKey(agency string) string {
	return fmt.Sprintf("%s:presence:%s", h.prefix, agency)
}

// Channel is the pub/sub channel of an agency.
func (h *Hub) Channel(agency string) string {
	return fmt.Sprintf("%s:agency:%s", h.prefix, agency)
}

func (h *Hub) Connect(ctx context.Context, agency, user string) error {
	return h.rdb.SAdd(ctx, h.setKey(agency), user).Err()
}

func (h *Hub) Disconnect(ctx context.Context, agency, user string) error {
	return h.rdb.SRem(ctx, h.setKey(agency), user).Err()
}

func (h *Hub) Online(ctx context.Context, agency string) ([]string, error) {
	users, err := h.rdb.SMembers(ctx, h.setKey(agency)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

// Broadcast publishes the event when anyone of the agency is online.
func (h *Hub) Broadcast(ctx context.Context, ev presence.Event) error {
	n, err := h.rdb.SCard(ctx, h.setKey(ev.AgencyID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		h.log.Debug("broadcast skipped, nobody online", zap.String("agency_id", ev.AgencyID))
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, h.Channel(ev.AgencyID), payload).Err()
}

func (h *Hub) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}
