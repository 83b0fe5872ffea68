package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqportal/internal/authz"
)

type tokenTable map[string]authz.Actor

func (t tokenTable) Identify(_ context.Context, token string) (authz.Actor, error) {
	actor, ok := t[token]
	if !ok {
		return authz.Actor{}, errors.New("unknown token")
	}
	return actor, nil
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(nil)
	go hub.Run(ctx)

	tokens := tokenTable{
		"good": {UserID: uuid.New(), Roles: []string{authz.RoleUser}},
	}
	h := NewHandler(hub, tokens, authz.NewEngine(nil, nil), nil)
	r := gin.New()
	r.GET("/ws", h.ServeWs)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeWs_RejectsBadToken(t *testing.T) {
	_, url := startServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWs_TokenFromHeaderOrCookie(t *testing.T) {
	hub, url := startServer(t)

	header := http.Header{"Authorization": []string{"Bearer good"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	cookie := http.Header{"Cookie": []string{"access_token=good"}}
	conn2, _, err := websocket.DefaultDialer.Dial(url, cookie)
	require.NoError(t, err)
	defer conn2.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_HeaderWinsOverQuery(t *testing.T) {
	_, url := startServer(t)
	header := http.Header{"Authorization": []string{"Bearer bad"}}
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=good", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWs_ReceivesPublishedEvents(t *testing.T) {
	hub, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("rfq.progress_changed", map[string]string{"rfq_id": "r1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "rfq.progress_changed", ev.Type)
	assert.Equal(t, "r1", ev.Payload["rfq_id"])
}

func TestPublish_NeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// no Run loop: the queue fills and further events are dropped
	for i := 0; i < sendBuffer+10; i++ {
		hub.Publish("x", i)
	}
	assert.Len(t, hub.Broadcast, sendBuffer)
}
