package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarama-server/internal/tarama"
)

func TestDecode_TypedCommands(t *testing.T) {
	d := newCommandDecoder()

	cmd, err := d.Decode(ClientMessage{
		Type:    "finishEnclosure",
		Payload: json.RawMessage(`{"roomCode":"ABCDEF","selectedPoints":[{"x":1,"y":2},{"x":3,"y":4}]}`),
	})
	require.NoError(t, err)
	finish, ok := cmd.(*FinishEnclosureCommand)
	require.True(t, ok)
	assert.Equal(t, []tarama.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, finish.SelectedPoints)

	cmd, err = d.Decode(ClientMessage{Type: "ping"})
	require.NoError(t, err)
	assert.IsType(t, &PingCommand{}, cmd)

	cmd, err = d.Decode(ClientMessage{Type: "makeMove", Payload: json.RawMessage(`{"roomCode":"ABCDEF","row":0,"col":0}`)})
	require.NoError(t, err)
	mv := cmd.(*MakeMoveCommand)
	assert.Equal(t, 0, *mv.Row)
	assert.Nil(t, mv.PlayerIndex)
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		msg     ClientMessage
		code    string
		message string
	}{
		{"unknown type", ClientMessage{Type: "fly"}, ErrUnknownType.Code, "Unknown message type: fly"},
		{"payload of wrong shape", ClientMessage{Type: "makeMove", Payload: json.RawMessage(`[1,2]`)}, ErrInvalidPayload.Code, "Invalid makeMove payload"},
		{"missing room code", ClientMessage{Type: "passTurn", Payload: json.RawMessage(`{}`)}, ErrInvalidPayload.Code, "Invalid passTurn payload: roomCode"},
		{"missing coordinates", ClientMessage{Type: "makeMove", Payload: json.RawMessage(`{"roomCode":"ABCDEF"}`)}, ErrInvalidPayload.Code, "Invalid makeMove payload: row, col"},
		{"missing ready flag", ClientMessage{Type: "setReady", Payload: json.RawMessage(`{"roomCode":"ABCDEF"}`)}, ErrInvalidPayload.Code, "Invalid setReady payload: ready"},
		{"missing points", ClientMessage{Type: "finishEnclosure", Payload: json.RawMessage(`{"roomCode":"ABCDEF"}`)}, ErrInvalidPayload.Code, "Invalid finishEnclosure payload: selectedPoints"},
		{"null payload", ClientMessage{Type: "joinRoom", Payload: json.RawMessage(`null`)}, ErrInvalidPayload.Code, "Invalid joinRoom payload: roomCode"},
	}

	d := newCommandDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.msg)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, KindValidation, e.Kind)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestCommandTypesAreAllDecodable(t *testing.T) {
	d := newCommandDecoder()
	for msgType := range commandTypes {
		_, err := d.Decode(ClientMessage{Type: msgType})
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidPayload, msgType)
		}
	}
}
