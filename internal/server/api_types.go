package server

import "tarama-server/internal/tarama"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// ============================================================================
// ROOM MEMBERSHIP (roomCreated, roomJoined, roomLeft)
// ============================================================================
type RoomJoinedResponse struct {
	RoomCode    string `json:"roomCode"`
	IsHost      bool   `json:"isHost"`
	PlayerIndex int    `json:"playerIndex"`
}

type RoomLeftResponse struct {
	RoomCode string `json:"roomCode"`
}

// ============================================================================
// LOBBY STATE (playersUpdate broadcast)
// ============================================================================
type LobbyState struct {
	RoomCode    string        `json:"roomCode"`
	Players     []LobbyPlayer `json:"players"`
	PlayerCount int           `json:"playerCount"`
	Phase       Phase         `json:"phase"`
	AllReady    bool          `json:"allReady"`
}

type LobbyPlayer struct {
	Name        string `json:"name"`
	PlayerIndex int    `json:"playerIndex"`
	Ready       bool   `json:"ready"`
	IsHost      bool   `json:"isHost"`
	Left        bool   `json:"left,omitempty"`
}

// ============================================================================
// GAME STATE (gameStarted, gameUpdate, gameRestarted)
// ============================================================================
type GameState struct {
	RoomCode       string                 `json:"roomCode"`
	Board          [][]int                `json:"board"`
	BoardSize      int                    `json:"boardSize"`
	CurrentPlayer  int                    `json:"currentPlayer"`
	Scores         [2]int                 `json:"scores"`
	Phase          Phase                  `json:"phase"`
	Winner         *int                   `json:"winner"`
	DisabledPoints []tarama.DisabledPoint `json:"disabledPoints"`
	Players        []LobbyPlayer          `json:"players"`
	MoveCount      int                    `json:"moveCount"`
	CaptureMode    string                 `json:"captureMode"`
}

type MoveInfo struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Player int `json:"player"`
}

type GameUpdateMessage struct {
	GameState GameState       `json:"gameState"`
	LastMove  MoveInfo        `json:"lastMove"`
	Capture   *tarama.Capture `json:"capture,omitempty"`
}

// ============================================================================
// ENCLOSURE & TURN (enclosureStarted, enclosureFinished, enclosureCancelled, turnPassed)
// ============================================================================
type EnclosureStartedMessage struct {
	Player        int `json:"player"`
	CurrentPlayer int `json:"currentPlayer"`
}

type EnclosureFinishedMessage struct {
	Success        bool                   `json:"success"`
	Message        string                 `json:"message,omitempty"`
	Code           string                 `json:"code,omitempty"`
	Player         int                    `json:"player"`
	EnclosedPoints []tarama.Point         `json:"enclosedPoints,omitempty"`
	DisabledPoints []tarama.DisabledPoint `json:"disabledPoints,omitempty"`
	ScoreDelta     int                    `json:"scoreDelta"`
	TotalScores    [2]int                 `json:"totalScores"`
	GameState      *GameState             `json:"gameState,omitempty"`
}

type TurnMessage struct {
	Player        int `json:"player"`
	CurrentPlayer int `json:"currentPlayer"`
}

// ============================================================================
// SERVER NOTICES (roomClosed, serverShutdown)
// ============================================================================
type RoomClosedMessage struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type ServerShutdownMessage struct {
	Message string `json:"message"`
}
