package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes serves the websocket endpoint directly and everything else
// through gin. gin's response writer refuses to hijack once headers are
// written, which websocket.Accept does before hijacking.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware(s.cfg.AllowedOrigins))

	r.GET("/", s.helloHandler)
	r.GET("/health", s.healthHandler)
	r.GET("/matches", s.matchesHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /websocket", s.websocketHandler)
	mux.Handle("/", r)

	return mux
}

func (s *Server) helloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Tarama game server is running",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	archive := "up"
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.archive.Ping(ctx); errors.Is(err, ErrArchiveDisabled) {
		archive = "disabled"
	} else if err != nil {
		log.Warn().Err(err).Msg("Archive health check failed")
		archive = "down"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"rooms":       s.registry.Count(),
		"connections": s.connectionManager.Count(),
		"archive":     archive,
	})
}

func (s *Server) matchesHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorMessage{Message: "limit must be a positive integer", Code: ErrInvalidPayload.Code})
			return
		}
		limit = min(n, 100)
	}

	matches, err := s.archive.RecentMatches(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list matches")
		c.JSON(http.StatusInternalServerError, ErrorMessage{Message: ErrInternal.Message, Code: ErrInternal.Code})
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.cfg.AllowedOrigins),
	})
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Failed to open websocket")
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Info().Str("conn", connectionID).Str("remote", r.RemoteAddr).Msg("New connection")
	s.connectionManager.AddConnection(connectionID, socket)
	defer s.handleDisconnect(connectionID)

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Str("conn", connectionID).Msg("Connection read ended")
			return
		}

		if msgType != websocket.MessageText {
			log.Debug().Str("conn", connectionID).Msg("Non-text input ignored")
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(ctx, connectionID, ErrRateLimited)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, connectionID, ErrInvalidJSON)
			continue
		}

		s.handleMessage(ctx, connectionID, msg)
	}
}

// handleDisconnect frees the connection's seat. There is no forfeit; the
// remaining player keeps the room.
func (s *Server) handleDisconnect(connectionID string) {
	s.leaveRoom(connectionID)
	s.connectionManager.RemoveConnection(connectionID)
	s.rateLimiter.RemoveConnection(connectionID)
	log.Info().Str("conn", connectionID).Msg("Connection closed")
}
