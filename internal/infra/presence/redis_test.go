package presence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/domain/presence"
)

func setupHub(t *testing.T) (*miniredis.Miniredis, *Hub) {
	mr := miniredis.RunT(t)
	rdb := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewHub(rdb, "test", zap.NewNop())
}

func TestHub_ConnectDisconnect(t *testing.T) {
	_, hub := setupHub(t)
	ctx := context.Background()

	require.NoError(t, hub.Connect(ctx, "agency-a", "u2"))
	require.NoError(t, hub.Connect(ctx, "agency-a", "u1"))
	require.NoError(t, hub.Connect(ctx, "agency-b", "u3"))

	users, err := hub.Online(ctx, "agency-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)

	require.NoError(t, hub.Disconnect(ctx, "agency-a", "u1"))
	users, err = hub.Online(ctx, "agency-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)

	users, err = hub.Online(ctx, "agency-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, users)
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	_, hub := setupHub(t)
	ctx := context.Background()
	require.NoError(t, hub.Connect(ctx, "agency-a", "u1"))

	sub := hub.rdb.Subscribe(ctx, hub.Channel("agency-a"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := presence.Event{Kind: presence.KindSyncCompleted, AgencyID: "agency-a", SyncID: "s1", Processed: 2, At: time.Unix(0, 0).UTC()}
	require.NoError(t, hub.Broadcast(ctx, ev))

	select {
	case msg := <-sub.Channel():
		var got presence.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "s1", got.SyncID)
		assert.Equal(t, 2, got.Processed)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestHub_BroadcastSkipsEmptyAgency(t *testing.T) {
	mr, hub := setupHub(t)
	err := hub.Broadcast(context.Background(), presence.Event{Kind: presence.KindSyncCompleted, AgencyID: "nobody"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:presence:nobody"))
}
