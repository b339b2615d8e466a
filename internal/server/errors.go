package server

import (
	"errors"

	"tarama-server/internal/tarama"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindRuleViolation ErrorKind = "rule"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

// Error is a command failure that is reported privately to the caller.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidJSON     = newError(KindValidation, "INVALID_JSON", "Message is not valid JSON")
	ErrUnknownType     = newError(KindValidation, "INVALID_MESSAGE_TYPE", "Unknown message type")
	ErrInvalidPayload  = newError(KindValidation, "INVALID_PAYLOAD", "Payload is missing required fields")
	ErrUsernameInvalid = newError(KindValidation, "USERNAME_INVALID", "Username cannot be empty")

	ErrRoomNotFound   = newError(KindNotFound, "ROOM_NOT_FOUND", "Room not found")
	ErrRoomFull       = newError(KindRuleViolation, "ROOM_FULL", "Room is full (2/2 players)")
	ErrGameInProgress = newError(KindRuleViolation, "GAME_IN_PROGRESS", "Game has already started")
	ErrUsernameTaken  = newError(KindRuleViolation, "USERNAME_TAKEN", "Username already taken")
	ErrAlreadyInRoom  = newError(KindRuleViolation, "ALREADY_IN_ROOM", "Leave your current room first")
	ErrNotInRoom      = newError(KindRuleViolation, "NOT_IN_ROOM", "You are not in this room")
	ErrGameNotStarted = newError(KindRuleViolation, "GAME_NOT_STARTED", "Game has not started")
	ErrGameOver       = newError(KindRuleViolation, "GAME_OVER", "Game is over")
	ErrNotYourTurn    = newError(KindRuleViolation, "NOT_YOUR_TURN", "It is not your turn")
	ErrOpponentLeft   = newError(KindRuleViolation, "OPPONENT_LEFT", "Your opponent has left; the host can restart the game")
	ErrPlayerMismatch = newError(KindRuleViolation, "PLAYER_MISMATCH", "Player index does not match your seat")
	ErrNotHost        = newError(KindRuleViolation, "NOT_HOST", "Only the host can restart the game")
	ErrEnclosureOff   = newError(KindRuleViolation, "ENCLOSURE_DISABLED", "Enclosures are disabled in surround capture mode")
	ErrRateLimited    = newError(KindRuleViolation, "RATE_LIMITED", "Too many messages, slow down")
	ErrInternal       = newError(KindInternal, "INTERNAL", "Internal server error")
)

// asError maps any error onto the wire error model.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var te *tarama.Error
	if errors.As(err, &te) {
		kind := KindRuleViolation
		if te.Kind == tarama.KindValidation {
			kind = KindValidation
		}
		return newError(kind, te.Code, te.Message)
	}
	return ErrInternal
}
