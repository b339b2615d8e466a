package server

import (
	"context"

	"github.com/rs/zerolog/log"
)

// cleanupTask sweeps the registry every SweepInterval until ctx ends.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := s.clock.Ticker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep reclaims idle and expired rooms and tells anyone still seated.
func (s *Server) sweep() int {
	reclaimed := s.registry.Sweep(s.cfg.EmptyRoomGrace, s.cfg.MaxRoomLifetime)

	for _, room := range reclaimed {
		log.Info().Str("room", room.RoomCode).Str("reason", room.Reason).Int("players", len(room.ConnectionIDs)).Msg("Room reclaimed")
		for _, connectionID := range room.ConnectionIDs {
			s.sessionManager.RemoveSession(connectionID, room.RoomCode)
		}
		s.broadcast(room.ConnectionIDs, MsgRoomClosed, RoomClosedMessage{
			RoomCode: room.RoomCode,
			Reason:   room.Reason,
		})
	}

	s.rateLimiter.Cleanup()

	if len(reclaimed) > 0 {
		log.Info().Int("reclaimed", len(reclaimed)).Int("rooms", s.registry.Count()).Msg("Cleanup sweep finished")
	}
	return len(reclaimed)
}
