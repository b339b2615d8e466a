package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"tarama-server/internal/tarama"
)

// handleMessage runs one inbound message to completion. Errors are reported
// privately; a panic inside a command is logged and the command dropped.
func (s *Server) handleMessage(ctx context.Context, connectionID string, msg ClientMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("conn", connectionID).
				Str("type", msg.Type).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Recovered panic in command handler")
		}
	}()

	cmd, err := s.decoder.Decode(msg)
	if err != nil {
		s.sendError(ctx, connectionID, err)
		return
	}

	log.Debug().Str("conn", connectionID).Str("type", msg.Type).Msg("Command received")

	if err := s.execute(ctx, connectionID, cmd); err != nil {
		s.sendError(ctx, connectionID, err)
	}
}

func (s *Server) execute(ctx context.Context, connectionID string, cmd Command) error {
	switch c := cmd.(type) {
	case *PingCommand:
		s.send(ctx, connectionID, MsgPong, struct{}{})
		return nil
	case *CreateRoomCommand:
		return s.handleCreateRoom(ctx, connectionID, c)
	case *JoinRoomCommand:
		return s.handleJoinRoom(ctx, connectionID, c)
	case *ToggleReadyCommand:
		return s.handleSetReady(connectionID, c.RoomCode, nil)
	case *SetReadyCommand:
		return s.handleSetReady(connectionID, c.RoomCode, c.Ready)
	case *MakeMoveCommand:
		return s.handleMakeMove(connectionID, c)
	case *StartEnclosureCommand:
		return s.handleStartEnclosure(connectionID, c)
	case *FinishEnclosureCommand:
		return s.handleFinishEnclosure(ctx, connectionID, c)
	case *CancelEnclosureCommand:
		return s.handleCancelEnclosure(connectionID, c)
	case *PassTurnCommand:
		return s.handlePassTurn(connectionID, c)
	case *RestartGameCommand:
		return s.handleRestartGame(connectionID, c)
	case *LeaveRoomCommand:
		return s.handleLeaveRoom(ctx, connectionID, c)
	}
	return fmt.Errorf("no handler for %T", cmd)
}

// ============================================================================
// ROOM MEMBERSHIP
// ============================================================================

func (s *Server) handleCreateRoom(ctx context.Context, connectionID string, c *CreateRoomCommand) error {
	if _, err := s.sessionManager.GetSession(connectionID); err == nil {
		return ErrAlreadyInRoom
	}

	room, err := s.registry.CreateRoom(connectionID, c.PlayerName)
	if err != nil {
		return err
	}
	lobby, recipients := room.Lobby()

	if err := s.sessionManager.StoreSession(SessionInfo{
		ConnectionID: connectionID,
		RoomCode:     room.Code,
		Username:     lobby.Players[0].Name,
	}); err != nil {
		return err
	}

	log.Info().Str("room", room.Code).Str("conn", connectionID).Str("player", lobby.Players[0].Name).Msg("Room created")

	s.send(ctx, connectionID, MsgRoomCreated, RoomJoinedResponse{
		RoomCode:    room.Code,
		IsHost:      true,
		PlayerIndex: 0,
	})
	s.broadcast(recipients, MsgPlayersUpdate, lobby)
	return nil
}

func (s *Server) handleJoinRoom(ctx context.Context, connectionID string, c *JoinRoomCommand) error {
	if _, err := s.sessionManager.GetSession(connectionID); err == nil {
		return ErrAlreadyInRoom
	}

	room, idx, err := s.registry.JoinRoom(c.RoomCode, connectionID, c.PlayerName)
	if err != nil {
		return err
	}
	lobby, recipients := room.Lobby()

	name := ""
	for _, p := range lobby.Players {
		if p.PlayerIndex == idx {
			name = p.Name
		}
	}
	if err := s.sessionManager.StoreSession(SessionInfo{
		ConnectionID: connectionID,
		RoomCode:     room.Code,
		Username:     name,
	}); err != nil {
		return err
	}

	log.Info().Str("room", room.Code).Str("conn", connectionID).Int("player", idx).Msg("Player joined room")

	s.send(ctx, connectionID, MsgRoomJoined, RoomJoinedResponse{
		RoomCode:    room.Code,
		IsHost:      false,
		PlayerIndex: idx,
	})
	s.broadcast(recipients, MsgPlayersUpdate, lobby)
	return nil
}

func (s *Server) handleLeaveRoom(ctx context.Context, connectionID string, c *LeaveRoomCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}
	s.leaveRoom(connectionID)
	s.send(ctx, connectionID, MsgRoomLeft, RoomLeftResponse{RoomCode: room.Code})
	return nil
}

// leaveRoom unbinds the connection and frees its seat. Used for explicit
// leaves and for disconnects.
func (s *Server) leaveRoom(connectionID string) {
	session, err := s.sessionManager.GetSession(connectionID)
	if err != nil {
		return
	}
	s.sessionManager.RemoveSession(connectionID, session.RoomCode)

	room, err := s.registry.GetRoom(session.RoomCode)
	if err != nil {
		// already reclaimed
		return
	}

	res, ok := room.RemovePlayer(connectionID)
	if !ok {
		return
	}

	log.Info().Str("room", room.Code).Str("conn", connectionID).Bool("empty", res.Empty).Msg("Player left room")

	if !res.Empty {
		s.broadcast(res.Recipients, MsgPlayersUpdate, res.Lobby)
	}
}

// ============================================================================
// LOBBY
// ============================================================================

func (s *Server) handleSetReady(connectionID, roomCode string, ready *bool) error {
	room, err := s.roomFor(connectionID, roomCode)
	if err != nil {
		return err
	}

	res, err := room.SetReady(connectionID, ready)
	if err != nil {
		return err
	}

	s.broadcast(res.Recipients, MsgPlayersUpdate, res.Lobby)
	if res.Started {
		log.Info().Str("room", room.Code).Msg("Game started")
		s.broadcast(res.Recipients, MsgGameStarted, res.State)
	}
	return nil
}

func (s *Server) handleRestartGame(connectionID string, c *RestartGameCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.Restart(connectionID)
	if err != nil {
		return err
	}

	log.Info().Str("room", room.Code).Msg("Game restarted")
	s.broadcast(res.Recipients, MsgGameRestarted, res.State)
	s.broadcast(res.Recipients, MsgPlayersUpdate, res.Lobby)
	return nil
}

// ============================================================================
// PLAY
// ============================================================================

func (s *Server) handleMakeMove(connectionID string, c *MakeMoveCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.MakeMove(connectionID, tarama.Point{X: *c.Col, Y: *c.Row}, c.PlayerIndex)
	if err != nil {
		return err
	}

	s.broadcast(res.Recipients, MsgGameUpdate, GameUpdateMessage{
		GameState: res.State,
		LastMove:  res.Move,
		Capture:   res.Capture,
	})

	if res.Match != nil {
		log.Info().Str("room", room.Code).Int("winner", *res.Match.Winner).Ints("scores", res.Match.Scores[:]).Msg("Game ended")
		s.recordMatch(*res.Match)
	}
	return nil
}

func (s *Server) handleStartEnclosure(connectionID string, c *StartEnclosureCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.StartEnclosure(connectionID)
	if err != nil {
		return err
	}

	s.broadcast(res.Recipients, MsgEnclosureStarted, EnclosureStartedMessage{
		Player:        res.Player,
		CurrentPlayer: res.CurrentPlayer,
	})
	return nil
}

func (s *Server) handleFinishEnclosure(ctx context.Context, connectionID string, c *FinishEnclosureCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.FinishEnclosure(connectionID, c.SelectedPoints)
	var rejected *tarama.Error
	if errors.As(err, &rejected) {
		s.send(ctx, connectionID, MsgEnclosureFinished, EnclosureFinishedMessage{
			Success: false,
			Message: rejected.Message,
			Code:    rejected.Code,
		})
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().Str("room", room.Code).Int("player", res.Player).Int("scoreDelta", res.Capture.ScoreDelta).Msg("Enclosure captured")

	state := res.State
	s.broadcast(res.Recipients, MsgEnclosureFinished, EnclosureFinishedMessage{
		Success:        true,
		Player:         res.Player,
		EnclosedPoints: res.Capture.Path,
		DisabledPoints: res.Capture.Disabled,
		ScoreDelta:     res.Capture.ScoreDelta,
		TotalScores:    state.Scores,
		GameState:      &state,
	})
	return nil
}

func (s *Server) handleCancelEnclosure(connectionID string, c *CancelEnclosureCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.CancelEnclosure(connectionID)
	if err != nil {
		return err
	}

	s.broadcast(res.Recipients, MsgEnclosureCancelled, TurnMessage{Player: res.Player, CurrentPlayer: res.CurrentPlayer})
	return nil
}

func (s *Server) handlePassTurn(connectionID string, c *PassTurnCommand) error {
	room, err := s.roomFor(connectionID, c.RoomCode)
	if err != nil {
		return err
	}

	res, err := room.PassTurn(connectionID)
	if err != nil {
		return err
	}

	s.broadcast(res.Recipients, MsgTurnPassed, TurnMessage{Player: res.Player, CurrentPlayer: res.CurrentPlayer})
	return nil
}

// ============================================================================
// PLUMBING
// ============================================================================

// roomFor resolves the room a room-scoped command targets. The connection's
// binding is authoritative; a code that is not its room is rejected.
func (s *Server) roomFor(connectionID, roomCode string) (*Room, error) {
	code := NormalizeRoomCode(roomCode)
	session, err := s.sessionManager.GetSession(connectionID)
	if err != nil || session.RoomCode != code {
		if _, err := s.registry.GetRoom(code); err != nil {
			return nil, err
		}
		return nil, ErrNotInRoom
	}
	return s.registry.GetRoom(code)
}

func (s *Server) send(ctx context.Context, connectionID, msgType string, payload interface{}) {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.transport.Send(ctx, connectionID, ServerMessage{Type: msgType, Payload: payload}); err != nil {
		log.Warn().Err(err).Str("conn", connectionID).Str("type", msgType).Msg("Failed to send message")
	}
}

func (s *Server) sendError(ctx context.Context, connectionID string, err error) {
	e := asError(err)
	if e.Kind == KindInternal {
		log.Error().Err(err).Str("conn", connectionID).Msg("Command failed")
		return
	}

	log.Debug().Str("conn", connectionID).Str("code", e.Code).Msg("Command rejected")
	s.send(ctx, connectionID, MsgError, ErrorMessage{
		Message: e.Message,
		Code:    e.Code,
		Kind:    string(e.Kind),
	})
}

// broadcast is fire-and-forget; each send gets its own timeout.
func (s *Server) broadcast(recipients []string, msgType string, payload interface{}) {
	for _, connectionID := range recipients {
		s.send(context.Background(), connectionID, msgType, payload)
	}
}

func (s *Server) recordMatch(record MatchRecord) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.archive.RecordMatch(ctx, record); err != nil {
			log.Error().Err(err).Str("room", record.RoomCode).Msg("Failed to archive match")
		}
	}()
}
