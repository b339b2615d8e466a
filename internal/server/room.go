package server

import (
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"tarama-server/internal/config"
	"tarama-server/internal/tarama"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

const maxPlayers = 2

// Rules are fixed for the lifetime of a room.
type Rules struct {
	BoardSize   int
	WinLength   int
	CaptureMode string
}

func (r Rules) surround() bool {
	return r.CaptureMode == config.CaptureSurround
}

// Player's index is its position in Room.players.
type Player struct {
	ConnectionID string
	Name         string
	Ready        bool
	Host         bool
	JoinedAt     time.Time

	// Left marks a seat vacated mid-game. It keeps its colour and score
	// until the host restarts.
	Left bool
}

// Room is a two-player game. Every exported method takes the room lock, so
// a room is only ever mutated by one command at a time.
type Room struct {
	Code string

	rules   Rules
	clock   clock.Clock
	players []*Player
	board   *tarama.Board
	turn    int
	scores  [2]int
	phase   Phase
	winner  int

	moveCount    int
	captureCount int

	createdAt    time.Time
	lastActivity time.Time
	startedAt    time.Time

	// set by the sweep before the room leaves the registry
	closed bool

	mu sync.Mutex
}

func newRoom(code string, rules Rules, clk clock.Clock) *Room {
	now := clk.Now()
	return &Room{
		Code:         code,
		rules:        rules,
		clock:        clk,
		board:        tarama.NewBoard(rules.BoardSize),
		phase:        PhaseLobby,
		winner:       -1,
		createdAt:    now,
		lastActivity: now,
	}
}

// ============================================================================
// RESULTS
// ============================================================================

type ReadyResult struct {
	Lobby      LobbyState
	Started    bool
	State      GameState
	Recipients []string
}

type MoveResult struct {
	State      GameState
	Move       MoveInfo
	Capture    *tarama.Capture
	Match      *MatchRecord // set when the move ended the game
	Recipients []string
}

type EnclosureResult struct {
	Player     int
	Capture    *tarama.Capture
	State      GameState
	Recipients []string
}

type TurnResult struct {
	Player        int
	CurrentPlayer int
	Recipients    []string
}

type RestartResult struct {
	Lobby      LobbyState
	State      GameState
	Recipients []string
}

type LeaveResult struct {
	Lobby      LobbyState
	Empty      bool
	Recipients []string
}

// ============================================================================
// MEMBERSHIP
// ============================================================================

func (r *Room) join(connectionID, username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return -1, ErrRoomNotFound
	}
	if r.phase != PhaseLobby {
		return -1, ErrGameInProgress
	}
	if len(r.players) >= maxPlayers {
		return -1, ErrRoomFull
	}
	for _, p := range r.players {
		if p.Name == username {
			return -1, ErrUsernameTaken
		}
	}

	now := r.clock.Now()
	r.players = append(r.players, &Player{
		ConnectionID: connectionID,
		Name:         username,
		Host:         len(r.players) == 0,
		JoinedAt:     now,
	})
	r.lastActivity = now
	return len(r.players) - 1, nil
}

// RemovePlayer frees the connection's seat and promotes the other player to
// host. In the lobby the remaining player moves to seat 0. Once a game has
// started the seat is only vacated, so the game stalls with both colours and
// scores intact; there is no forfeit.
func (r *Room) RemovePlayer(connectionID string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatOf(connectionID)
	if idx < 0 {
		return LeaveResult{}, false
	}

	leaving := r.players[idx]
	if r.phase == PhaseLobby {
		r.players = append(r.players[:idx], r.players[idx+1:]...)
	} else {
		r.players[idx] = &Player{Name: leaving.Name, JoinedAt: leaving.JoinedAt, Left: true}
	}
	if leaving.Host {
		for _, p := range r.players {
			if !p.Left {
				p.Host = true
				break
			}
		}
	}
	r.lastActivity = r.clock.Now()

	return LeaveResult{
		Lobby:      r.lobbyState(),
		Empty:      r.seated() == 0,
		Recipients: r.connectionIDs(),
	}, true
}

// ============================================================================
// LOBBY
// ============================================================================

// SetReady sets the caller's ready flag, or toggles it when ready is nil.
// The game starts the moment both seats are ready.
func (r *Room) SetReady(connectionID string, ready *bool) (ReadyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ReadyResult{}, ErrRoomNotFound
	}
	idx := r.seatOf(connectionID)
	if idx < 0 {
		return ReadyResult{}, ErrNotInRoom
	}
	if r.phase != PhaseLobby {
		return ReadyResult{}, ErrGameInProgress
	}

	player := r.players[idx]
	if ready == nil {
		player.Ready = !player.Ready
	} else {
		player.Ready = *ready
	}
	r.lastActivity = r.clock.Now()

	res := ReadyResult{Recipients: r.connectionIDs()}
	if r.allReady() {
		r.phase = PhasePlaying
		r.turn = 0
		r.startedAt = r.lastActivity
		res.Started = true
		res.State = r.gameState()
	}
	res.Lobby = r.lobbyState()
	return res, nil
}

// Restart returns the room to the lobby with a fresh board. Host only.
func (r *Room) Restart(connectionID string) (RestartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return RestartResult{}, ErrRoomNotFound
	}
	idx := r.seatOf(connectionID)
	if idx < 0 {
		return RestartResult{}, ErrNotInRoom
	}
	if !r.players[idx].Host {
		return RestartResult{}, ErrNotHost
	}

	r.players = slices.DeleteFunc(r.players, func(p *Player) bool { return p.Left })
	r.board.Reset()
	r.turn = 0
	r.scores = [2]int{}
	r.phase = PhaseLobby
	r.winner = -1
	r.moveCount = 0
	r.captureCount = 0
	r.startedAt = time.Time{}
	for _, p := range r.players {
		p.Ready = false
	}
	r.lastActivity = r.clock.Now()

	return RestartResult{
		Lobby:      r.lobbyState(),
		State:      r.gameState(),
		Recipients: r.connectionIDs(),
	}, nil
}

// ============================================================================
// PLAY
// ============================================================================

func (r *Room) MakeMove(connectionID string, p tarama.Point, claimed *int) (MoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.requireTurn(connectionID)
	if err != nil {
		return MoveResult{}, err
	}
	if claimed != nil && *claimed != idx {
		return MoveResult{}, ErrPlayerMismatch
	}
	if err := r.board.Place(p, idx); err != nil {
		return MoveResult{}, err
	}
	r.moveCount++

	res := MoveResult{Move: MoveInfo{Row: p.Y, Col: p.X, Player: idx}}
	if r.rules.surround() {
		if capture := tarama.Surround(r.board, p, idx); capture != nil {
			r.scores[idx] += capture.ScoreDelta
			r.captureCount++
			res.Capture = capture
		}
	}

	if winner, ok := r.board.CheckWinner(r.rules.WinLength); ok {
		r.phase = PhaseEnded
		r.winner = winner
	}
	r.turn = 1 - r.turn
	r.lastActivity = r.clock.Now()

	if r.phase == PhaseEnded {
		record := r.matchRecord()
		res.Match = &record
	}
	res.State = r.gameState()
	res.Recipients = r.connectionIDs()
	return res, nil
}

// StartEnclosure only announces intent; it does not change state.
func (r *Room) StartEnclosure(connectionID string) (TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rules.surround() {
		return TurnResult{}, ErrEnclosureOff
	}
	idx, err := r.requireTurn(connectionID)
	if err != nil {
		return TurnResult{}, err
	}
	r.lastActivity = r.clock.Now()
	return TurnResult{Player: idx, CurrentPlayer: r.turn, Recipients: r.connectionIDs()}, nil
}

// FinishEnclosure applies the enclosure drawn along path. A rejected path
// leaves the room untouched and the turn with the caller.
func (r *Room) FinishEnclosure(connectionID string, path []tarama.Point) (EnclosureResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rules.surround() {
		return EnclosureResult{}, ErrEnclosureOff
	}
	idx, err := r.requireTurn(connectionID)
	if err != nil {
		return EnclosureResult{}, err
	}

	capture, err := tarama.Enclose(r.board, path, idx)
	if err != nil {
		return EnclosureResult{}, err
	}
	r.scores[idx] += capture.ScoreDelta
	r.captureCount++
	r.turn = 1 - r.turn
	r.lastActivity = r.clock.Now()

	return EnclosureResult{
		Player:     idx,
		Capture:    capture,
		State:      r.gameState(),
		Recipients: r.connectionIDs(),
	}, nil
}

func (r *Room) CancelEnclosure(connectionID string) (TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rules.surround() {
		return TurnResult{}, ErrEnclosureOff
	}
	return r.advanceTurn(connectionID)
}

func (r *Room) PassTurn(connectionID string) (TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.advanceTurn(connectionID)
}

func (r *Room) advanceTurn(connectionID string) (TurnResult, error) {
	idx, err := r.requireTurn(connectionID)
	if err != nil {
		return TurnResult{}, err
	}
	r.turn = 1 - r.turn
	r.lastActivity = r.clock.Now()
	return TurnResult{Player: idx, CurrentPlayer: r.turn, Recipients: r.connectionIDs()}, nil
}

// ============================================================================
// SNAPSHOTS
// ============================================================================

func (r *Room) Lobby() (LobbyState, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobbyState(), r.connectionIDs()
}

func (r *Room) State() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameState()
}

// ============================================================================
// HELPERS (room lock held)
// ============================================================================

func (r *Room) seatOf(connectionID string) int {
	for i, p := range r.players {
		if !p.Left && p.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

func (r *Room) requireTurn(connectionID string) (int, error) {
	if r.closed {
		return -1, ErrRoomNotFound
	}
	idx := r.seatOf(connectionID)
	if idx < 0 {
		return -1, ErrNotInRoom
	}
	switch r.phase {
	case PhaseLobby:
		return -1, ErrGameNotStarted
	case PhaseEnded:
		return -1, ErrGameOver
	}
	if r.seated() != maxPlayers {
		return -1, ErrOpponentLeft
	}
	if idx != r.turn {
		return -1, ErrNotYourTurn
	}
	return idx, nil
}

func (r *Room) allReady() bool {
	if len(r.players) != maxPlayers {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) seated() int {
	n := 0
	for _, p := range r.players {
		if !p.Left {
			n++
		}
	}
	return n
}

func (r *Room) connectionIDs() []string {
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		if !p.Left {
			ids = append(ids, p.ConnectionID)
		}
	}
	return ids
}

func (r *Room) lobbyPlayers() []LobbyPlayer {
	players := make([]LobbyPlayer, len(r.players))
	for i, p := range r.players {
		players[i] = LobbyPlayer{Name: p.Name, PlayerIndex: i, Ready: p.Ready, IsHost: p.Host, Left: p.Left}
	}
	return players
}

func (r *Room) lobbyState() LobbyState {
	return LobbyState{
		RoomCode:    r.Code,
		Players:     r.lobbyPlayers(),
		PlayerCount: r.seated(),
		Phase:       r.phase,
		AllReady:    r.allReady(),
	}
}

func (r *Room) gameState() GameState {
	state := GameState{
		RoomCode:       r.Code,
		Board:          r.board.Snapshot(),
		BoardSize:      r.board.Size(),
		CurrentPlayer:  r.turn,
		Scores:         r.scores,
		Phase:          r.phase,
		DisabledPoints: r.board.Disabled(),
		Players:        r.lobbyPlayers(),
		MoveCount:      r.moveCount,
		CaptureMode:    r.rules.CaptureMode,
	}
	if r.winner >= 0 {
		winner := r.winner
		state.Winner = &winner
	}
	return state
}

func (r *Room) matchRecord() MatchRecord {
	record := MatchRecord{
		RoomCode:  r.Code,
		Scores:    r.scores,
		Moves:     r.moveCount,
		Captures:  r.captureCount,
		StartedAt: r.startedAt,
		EndedAt:   r.clock.Now(),
	}
	for i, p := range r.players {
		record.PlayerNames[i] = p.Name
	}
	if r.winner >= 0 {
		winner := r.winner
		record.Winner = &winner
	}
	return record
}

// reclaimReason reports why the sweep should delete the room, or "" to keep it.
func (r *Room) reclaimReason(now time.Time, grace, lifetime time.Duration) string {
	switch {
	case now.Sub(r.createdAt) > lifetime:
		return "expired"
	case r.seated() == 0 && now.Sub(r.lastActivity) > grace:
		return "idle"
	}
	return ""
}
