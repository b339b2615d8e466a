package server

import "encoding/json"

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound message types.
const (
	MsgError              = "error"
	MsgPong               = "pong"
	MsgRoomCreated        = "roomCreated"
	MsgRoomJoined         = "roomJoined"
	MsgPlayersUpdate      = "playersUpdate"
	MsgGameStarted        = "gameStarted"
	MsgGameUpdate         = "gameUpdate"
	MsgEnclosureStarted   = "enclosureStarted"
	MsgEnclosureFinished  = "enclosureFinished"
	MsgEnclosureCancelled = "enclosureCancelled"
	MsgTurnPassed         = "turnPassed"
	MsgGameRestarted      = "gameRestarted"
	MsgRoomLeft           = "roomLeft"
	MsgRoomClosed         = "roomClosed"
	MsgServerShutdown     = "serverShutdown"
)
