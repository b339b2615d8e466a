package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"tarama-server/internal/config"
)

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Port = 0
	return cfg
}

type sentMessage struct {
	ConnectionID string
	Msg          ServerMessage
}

// recordingTransport captures every outbound message instead of writing to a socket.
type recordingTransport struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingTransport) Send(_ context.Context, connectionID string, msg ServerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{ConnectionID: connectionID, Msg: msg})
	return nil
}

func (r *recordingTransport) all() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

func (r *recordingTransport) ofType(msgType string) []sentMessage {
	var out []sentMessage
	for _, m := range r.all() {
		if m.Msg.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (r *recordingTransport) to(connectionID string) []ServerMessage {
	var out []ServerMessage
	for _, m := range r.all() {
		if m.ConnectionID == connectionID {
			out = append(out, m.Msg)
		}
	}
	return out
}

func (r *recordingTransport) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// newTestServer builds a server that talks through a recordingTransport and a mock clock.
func newTestServer(t *testing.T, cfg config.Config, opts ...Option) (*Server, *recordingTransport, *clock.Mock) {
	t.Helper()
	rec := &recordingTransport{}
	mock := clock.NewMock()
	opts = append([]Option{WithTransport(rec), WithClock(mock)}, opts...)
	s, _ := NewServer(cfg, opts...)
	t.Cleanup(s.stopCleanup)
	return s, rec, mock
}

// command runs one inbound message synchronously as the given connection.
func command(s *Server, connectionID, msgType string, payload interface{}) {
	msg := ClientMessage{Type: msgType}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	s.handleMessage(context.Background(), connectionID, msg)
}

// startedRoom seats "p0" and "p1" in a new room and starts the game.
func startedRoom(t *testing.T, s *Server) string {
	t.Helper()
	command(s, "p0", "createRoom", map[string]string{"playerName": "Alice"})
	session, err := s.sessionManager.GetSession("p0")
	require.NoError(t, err)
	code := session.RoomCode

	command(s, "p1", "joinRoom", map[string]string{"roomCode": code, "playerName": "Bob"})
	command(s, "p0", "toggleReady", map[string]string{"roomCode": code})
	command(s, "p1", "toggleReady", map[string]string{"roomCode": code})

	room, err := s.registry.GetRoom(code)
	require.NoError(t, err)
	require.Equal(t, PhasePlaying, room.State().Phase)
	return code
}

func move(s *Server, connectionID, code string, row, col int) {
	command(s, connectionID, "makeMove", map[string]interface{}{"roomCode": code, "row": row, "col": col})
}

func decodePayload[T any](t *testing.T, payload interface{}) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(mustMarshal(payload), &out))
	return out
}

// ============================================================================
// WEBSOCKET HELPERS
// ============================================================================

func setupTestServer() (*Server, string, func()) {
	return setupTestServerWithConfig(testConfig())
}

func setupTestServerWithConfig(cfg config.Config) (*Server, string, func()) {
	s, _ := NewServer(cfg)

	server := httptest.NewServer(s.RegisterRoutes())
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/websocket"

	cleanup := func() {
		server.Close()
		s.stopCleanup()
	}

	return s, url, cleanup
}

func writeMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg := ClientMessage{Type: msgType}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	require.NoError(t, conn.Write(ctx, websocket.MessageText, mustMarshal(msg)))
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil skips messages until one of msgType arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) ServerMessage {
	t.Helper()
	for range 20 {
		msg := readMessage(t, ctx, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message received", msgType)
	return ServerMessage{}
}
