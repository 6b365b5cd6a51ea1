package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"amarms/internal/permission"
	"amarms/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Hub, *token.Manager, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return startServerWithContext(t, ctx)
}

func startServerWithContext(t *testing.T, ctx context.Context) (*Hub, *token.Manager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	go hub.Run(ctx)
	tokens := token.NewManager("test-secret", time.Hour)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, tokens, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestPublishReachesClients(t *testing.T) {
	hub, tokens, url := startServer(t)
	access, _, err := tokens.Issue("u-1", string(permission.RoleDeveloper))
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+access, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("task.moved", map[string]string{"to": "done"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "task.moved", msg.Event)
	assert.Equal(t, "done", msg.Data["to"])
}

func TestServeWsRejectsCallers(t *testing.T) {
	_, tokens, url := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	access, _, err := tokens.Issue("u-2", string(permission.RoleMarketing))
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+access, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < broadcastBuffer*2; i++ {
		hub.Publish("task.created", i)
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestStoppedHubDoesNotBlockClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub, tokens, url := startServerWithContext(t, ctx)
	access, _, err := tokens.Issue("u-3", string(permission.RoleDeveloper))
	require.NoError(t, err)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	left := make(chan struct{})
	go func() {
		hub.leave(&Client{Hub: hub, Send: make(chan []byte, 1)})
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}

	// A late connection is closed by the server instead of hanging.
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+access, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection was left open: %v", err)
	assert.Zero(t, hub.ClientCount())
}
