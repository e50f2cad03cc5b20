package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/larder-app/larder/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer upgrades each connection and sends every received notification
// back to the sender.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var n Notification
			if err := conn.ReadJSON(&n); err != nil {
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type recordingApplier struct {
	mu  sync.Mutex
	got []Notification
	ch  chan struct{}
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{ch: make(chan struct{}, 16)}
}

func (a *recordingApplier) ApplyNotification(_ context.Context, n Notification) error {
	a.mu.Lock()
	a.got = append(a.got, n)
	a.mu.Unlock()
	a.ch <- struct{}{}
	return nil
}

func TestWSChannel_BroadcastAndListen(t *testing.T) {
	srv := echoServer(t)
	c := NewWSChannel(wsURL(srv), nil)
	defer c.Close()

	applier := newRecordingApplier()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Listen(ctx, applier)

	payload, err := json.Marshal(models.Item{ID: "p1", Name: "milk"})
	require.NoError(t, err)

	n := Notification{Kind: models.OpCreate, Entity: models.KindItem, ID: "p1", Payload: payload}
	require.NoError(t, c.Broadcast(ctx, n))

	select {
	case <-applier.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound notification")
	}

	applier.mu.Lock()
	defer applier.mu.Unlock()
	require.Len(t, applier.got, 1)
	assert.Equal(t, models.OpCreate, applier.got[0].Kind)
	assert.Equal(t, models.KindItem, applier.got[0].Entity)
	assert.Equal(t, "p1", applier.got[0].ID)
}

func TestWSChannel_BroadcastRedialsAfterDrop(t *testing.T) {
	srv := echoServer(t)
	c := NewWSChannel(wsURL(srv), nil)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Broadcast(ctx, Notification{Kind: models.OpDelete, Entity: models.KindItem, ID: "a"}))

	// sever the current connection behind the channel's back
	c.mu.Lock()
	require.NotNil(t, c.conn)
	_ = c.conn.Close()
	c.mu.Unlock()

	// first write may fail and drop the connection, a subsequent one redials
	_ = c.Broadcast(ctx, Notification{Kind: models.OpDelete, Entity: models.KindItem, ID: "b"})
	require.NoError(t, c.Broadcast(ctx, Notification{Kind: models.OpDelete, Entity: models.KindItem, ID: "c"}))
}

func TestWSChannel_BroadcastUnreachable(t *testing.T) {
	c := NewWSChannel("ws://127.0.0.1:1/api/notifications", nil)
	err := c.Broadcast(context.Background(), Notification{Kind: models.OpCreate, Entity: models.KindItem})
	assert.Error(t, err)
}
