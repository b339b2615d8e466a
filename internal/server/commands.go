package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tarama-server/internal/tarama"
)

// Command is one of the inbound message payloads below.
type Command interface {
	command()
}

type PingCommand struct{}

type CreateRoomCommand struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomCommand struct {
	RoomCode   string `json:"roomCode" validate:"required"`
	PlayerName string `json:"playerName"`
}

type ToggleReadyCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

type SetReadyCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
	Ready    *bool  `json:"ready" validate:"required"`
}

type MakeMoveCommand struct {
	RoomCode    string `json:"roomCode" validate:"required"`
	Row         *int   `json:"row" validate:"required"`
	Col         *int   `json:"col" validate:"required"`
	PlayerIndex *int   `json:"playerIndex" validate:"omitempty,oneof=0 1"`
}

type StartEnclosureCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

type FinishEnclosureCommand struct {
	RoomCode       string         `json:"roomCode" validate:"required"`
	SelectedPoints []tarama.Point `json:"selectedPoints" validate:"required"`
}

type CancelEnclosureCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

type PassTurnCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

type RestartGameCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

type LeaveRoomCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}

func (*PingCommand) command()            {}
func (*CreateRoomCommand) command()      {}
func (*JoinRoomCommand) command()        {}
func (*ToggleReadyCommand) command()     {}
func (*SetReadyCommand) command()        {}
func (*MakeMoveCommand) command()        {}
func (*StartEnclosureCommand) command()  {}
func (*FinishEnclosureCommand) command() {}
func (*CancelEnclosureCommand) command() {}
func (*PassTurnCommand) command()        {}
func (*RestartGameCommand) command()     {}
func (*LeaveRoomCommand) command()       {}

var commandTypes = map[string]func() Command{
	"ping":            func() Command { return &PingCommand{} },
	"createRoom":      func() Command { return &CreateRoomCommand{} },
	"joinRoom":        func() Command { return &JoinRoomCommand{} },
	"toggleReady":     func() Command { return &ToggleReadyCommand{} },
	"setReady":        func() Command { return &SetReadyCommand{} },
	"makeMove":        func() Command { return &MakeMoveCommand{} },
	"startEnclosure":  func() Command { return &StartEnclosureCommand{} },
	"finishEnclosure": func() Command { return &FinishEnclosureCommand{} },
	"cancelEnclosure": func() Command { return &CancelEnclosureCommand{} },
	"passTurn":        func() Command { return &PassTurnCommand{} },
	"restartGame":     func() Command { return &RestartGameCommand{} },
	"leaveRoom":       func() Command { return &LeaveRoomCommand{} },
}

type commandDecoder struct {
	validate *validator.Validate
}

func newCommandDecoder() *commandDecoder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &commandDecoder{validate: v}
}

// Decode turns an envelope into a typed command with its required fields present.
func (d *commandDecoder) Decode(msg ClientMessage) (Command, error) {
	newCommand, ok := commandTypes[msg.Type]
	if !ok {
		return nil, newError(KindValidation, ErrUnknownType.Code, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
	cmd := newCommand()

	payload := bytes.TrimSpace(msg.Payload)
	if len(payload) > 0 && !bytes.Equal(payload, []byte("null")) {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, newError(KindValidation, ErrInvalidPayload.Code, fmt.Sprintf("Invalid %s payload", msg.Type))
		}
	}

	if err := d.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field()
		}
		return nil, newError(KindValidation, ErrInvalidPayload.Code,
			fmt.Sprintf("Invalid %s payload: %s", msg.Type, strings.Join(fields, ", ")))
	}
	return cmd, nil
}
