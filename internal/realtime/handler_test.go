package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todoshi/auth"
	"todoshi/internal/domain"
	"todoshi/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// tokenVerifier accepts "tok-<userID>"
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	userID, ok := strings.CutPrefix(token, "tok-")
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: userID}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testProfiles())
	projects := new(MockProjects)
	projects.On("AuthorizeRoom", mock.Anything, "Prp1", "p1", mock.Anything).Return(&domain.Project{}, nil)
	router := NewRouter(hub, projects, new(MockLogs), new(MockTodos))
	handler := NewHandler(ctx, tokenVerifier{}, hub, router)

	engine := gin.New()
	engine.GET("/ws", handler.ServeWS)
	server := httptest.NewServer(engine)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
		cancel()
	})
	return server, hub
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// expect reads frames until one named event arrives
func expect(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f Frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f.Data
		}
	}
}

func decodeSnapshot(t *testing.T, data json.RawMessage) PresenceSnapshot {
	t.Helper()
	var snapshot PresenceSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	return snapshot
}

func TestServeWS_RejectsBeforeUpgrade(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing token", query: ""},
		{name: "invalid token", query: "?token=forged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/ws" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body["message"])
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestServeWS_BearerHeader(t *testing.T) {
	server, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer tok-u1"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}

func TestServeWS_PresenceLifecycle(t *testing.T) {
	server, hub := newTestServer(t)

	alice := dial(t, server, "tok-u1")
	send(t, alice, EventJoinProjectRoom, map[string]string{"roomID": "Prp1", "userId": "u1", "projectId": "p1"})
	assert.Equal(t, 1, decodeSnapshot(t, expect(t, alice, room.EventOnlineUsersUpdate)).TotalCount)
	assert.JSONEq(t, `{"roomID":"Prp1"}`, string(expect(t, alice, room.EventRoomConnectionSuccess)))

	bob := dial(t, server, "tok-u2")
	send(t, bob, EventJoinProjectRoom, map[string]string{"roomID": "Prp1", "userId": "u2", "projectId": "p1"})
	expect(t, bob, room.EventRoomConnectionSuccess)

	snapshot := decodeSnapshot(t, expect(t, alice, room.EventOnlineUsersUpdate))
	assert.Equal(t, 2, snapshot.TotalCount)
	assert.Equal(t, "bob", snapshot.OnlineUsers[1].Username)

	// a second session for alice is refused and the first one survives
	again := dial(t, server, "tok-u1")
	send(t, again, EventJoinProjectRoom, map[string]string{"roomID": "Prp1", "userId": "u1", "projectId": "p1"})
	assert.Contains(t, string(expect(t, again, room.EventRoomConnectionError)), "session already exists")

	require.NoError(t, bob.Close())
	snapshot = decodeSnapshot(t, expect(t, alice, room.EventOnlineUsersUpdate))
	assert.Equal(t, 1, snapshot.TotalCount)
	assert.Equal(t, "u1", snapshot.OnlineUsers[0].UserID)

	require.NoError(t, alice.Close())
	assert.Eventually(t, func() bool { return len(hub.Rooms()) == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestServeWS_BadFrameKeepsConnection(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "tok-u1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Contains(t, string(expect(t, conn, room.EventServerError)), "malformed frame")

	send(t, conn, EventJoinProjectRoom, map[string]string{"roomID": "Prp1", "userId": "u1", "projectId": "p1"})
	expect(t, conn, room.EventRoomConnectionSuccess)
}
