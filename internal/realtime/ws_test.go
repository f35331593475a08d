package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServe_DeliversEventsOverWebsocket(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(ws, 7)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := hub.ConnectionCount(7)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Emit(7, "order_status_updated", map[string]string{"status": "processing"})
	hub.Emit(8, "order_status_updated", map[string]string{"status": "cancelled"})

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "order_status_updated", got.Event)
	assert.Equal(t, "processing", got.Data["status"])

	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool {
		n, err := hub.ConnectionCount(7)
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)
}
