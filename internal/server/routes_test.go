package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// HTTP ENDPOINTS
// ============================================================================

func TestHelloHandler(t *testing.T) {
	s, _, _ := newTestServer(t, testConfig())

	w := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealthHandler(t *testing.T) {
	assert := assert.New(t)
	s, _, _ := newTestServer(t, testConfig())
	command(s, "p0", "createRoom", map[string]string{"playerName": "Alice"})

	w := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(http.StatusOK, w.Code)
	var body struct {
		Status      string `json:"status"`
		Rooms       int    `json:"rooms"`
		Connections int    `json:"connections"`
		Archive     string `json:"archive"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal("OK", body.Status)
	assert.Equal(1, body.Rooms)
	assert.Equal(0, body.Connections)
	assert.Equal("disabled", body.Archive)
}

func TestMatchesHandler(t *testing.T) {
	archive := &fakeArchive{}
	s, _, _ := newTestServer(t, testConfig(), WithArchive(archive))
	handler := s.RegisterRoutes()

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"default limit", "", http.StatusOK},
		{"explicit limit", "?limit=5", http.StatusOK},
		{"clamped limit", "?limit=1000", http.StatusOK},
		{"zero limit", "?limit=0", http.StatusBadRequest},
		{"not a number", "?limit=abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/matches"+tt.query, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, "[]", w.Body.String())
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://tarama.example"}
	s, _, _ := newTestServer(t, cfg)
	handler := s.RegisterRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://tarama.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://tarama.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ============================================================================
// WEBSOCKET
// ============================================================================

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestWebsocket_Ping(t *testing.T) {
	_, url, cleanup := setupTestServer()
	defer cleanup()
	ctx := context.Background()
	conn := dial(t, ctx, url)

	writeMessage(t, ctx, conn, "ping", nil)

	assert.Equal(t, MsgPong, readMessage(t, ctx, conn).Type)
}

func TestWebsocket_InvalidJSON(t *testing.T) {
	_, url, cleanup := setupTestServer()
	defer cleanup()
	ctx := context.Background()
	conn := dial(t, ctx, url)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))

	msg := readMessage(t, ctx, conn)
	require.Equal(t, MsgError, msg.Type)
	assert.Equal(t, ErrInvalidJSON.Code, decodePayload[ErrorMessage](t, msg.Payload).Code)

	// The connection survives a bad frame.
	writeMessage(t, ctx, conn, "ping", nil)
	assert.Equal(t, MsgPong, readMessage(t, ctx, conn).Type)
}

func TestWebsocket_FullLobbyFlow(t *testing.T) {
	assert := assert.New(t)
	s, url, cleanup := setupTestServer()
	defer cleanup()
	ctx := context.Background()

	alice := dial(t, ctx, url)
	bob := dial(t, ctx, url)

	writeMessage(t, ctx, alice, "createRoom", map[string]string{"playerName": "Alice"})
	created := decodePayload[RoomJoinedResponse](t, readUntil(t, ctx, alice, MsgRoomCreated).Payload)
	readUntil(t, ctx, alice, MsgPlayersUpdate)

	writeMessage(t, ctx, bob, "joinRoom", map[string]string{"roomCode": strings.ToLower(created.RoomCode), "playerName": "Bob"})
	joined := decodePayload[RoomJoinedResponse](t, readUntil(t, ctx, bob, MsgRoomJoined).Payload)
	assert.Equal(1, joined.PlayerIndex)
	lobby := decodePayload[LobbyState](t, readUntil(t, ctx, alice, MsgPlayersUpdate).Payload)
	assert.Equal(2, lobby.PlayerCount)

	writeMessage(t, ctx, alice, "toggleReady", map[string]string{"roomCode": created.RoomCode})
	writeMessage(t, ctx, bob, "toggleReady", map[string]string{"roomCode": created.RoomCode})

	aliceState := decodePayload[GameState](t, readUntil(t, ctx, alice, MsgGameStarted).Payload)
	bobState := decodePayload[GameState](t, readUntil(t, ctx, bob, MsgGameStarted).Payload)
	assert.Equal(aliceState, bobState)
	assert.Equal(PhasePlaying, aliceState.Phase)

	writeMessage(t, ctx, alice, "makeMove", map[string]interface{}{"roomCode": created.RoomCode, "row": 3, "col": 4})
	update := decodePayload[GameUpdateMessage](t, readUntil(t, ctx, bob, MsgGameUpdate).Payload)
	assert.Equal(MoveInfo{Row: 3, Col: 4, Player: 0}, update.LastMove)

	// Closing Alice's socket vacates her seat and promotes Bob.
	alice.Close(websocket.StatusNormalClosure, "")
	lobby = decodePayload[LobbyState](t, readUntil(t, ctx, bob, MsgPlayersUpdate).Payload)
	require.Len(t, lobby.Players, 2)
	assert.True(lobby.Players[0].Left)
	assert.True(lobby.Players[1].IsHost)
	assert.Equal(1, lobby.PlayerCount)

	assert.Eventually(func() bool { return s.connectionManager.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebsocket_RateLimited(t *testing.T) {
	s, url, cleanup := setupTestServer()
	defer cleanup()
	s.rateLimiter = NewRateLimiter(2, time.Minute, nil)
	ctx := context.Background()
	conn := dial(t, ctx, url)

	for range 3 {
		writeMessage(t, ctx, conn, "ping", nil)
	}

	assert.Equal(t, MsgPong, readMessage(t, ctx, conn).Type)
	assert.Equal(t, MsgPong, readMessage(t, ctx, conn).Type)
	msg := readMessage(t, ctx, conn)
	require.Equal(t, MsgError, msg.Type)
	assert.Equal(t, ErrRateLimited.Code, decodePayload[ErrorMessage](t, msg.Payload).Code)
}

func TestShutdown_NotifiesConnections(t *testing.T) {
	s, url, cleanup := setupTestServer()
	defer cleanup()
	ctx := context.Background()
	conn := dial(t, ctx, url)

	// Make sure the connection is registered before shutting down.
	writeMessage(t, ctx, conn, "ping", nil)
	readUntil(t, ctx, conn, MsgPong)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))

	msg := readUntil(t, ctx, conn, MsgServerShutdown)
	assert.Equal(t, "Server is shutting down", decodePayload[ServerShutdownMessage](t, msg.Payload).Message)
}

func TestWebsocket_PlainRequestNeedsUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t, testConfig())

	w := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/websocket", nil))

	assert.Equal(t, http.StatusUpgradeRequired, w.Code)
}

func TestWebsocket_OriginCheck(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://tarama.example"}
	_, url, cleanup := setupTestServerWithConfig(cfg)
	defer cleanup()
	ctx := context.Background()

	allowed, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://tarama.example"}},
	})
	require.NoError(t, err)
	defer allowed.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, allowed, "ping", nil)
	assert.Equal(t, MsgPong, readMessage(t, ctx, allowed).Type)

	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example"}},
	})
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
