package server

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
)

// Registry owns every live room. Its lock guards only the map; room state is
// guarded by each room's own lock, and the registry lock is never held while
// waiting on a room.
type Registry struct {
	rooms map[string]*Room
	rules Rules
	clock clock.Clock
	mu    sync.RWMutex
}

type ReclaimedRoom struct {
	RoomCode      string
	Reason        string
	ConnectionIDs []string
}

func NewRegistry(rules Rules, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		rooms: make(map[string]*Room),
		rules: rules,
		clock: clk,
	}
}

// CreateRoom opens a lobby under a fresh code with the caller seated as host.
func (reg *Registry) CreateRoom(connectionID, username string) (*Room, error) {
	username, err := validateUsernameFormat(username)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	code := GenerateRoomCode(func(c string) bool {
		_, taken := reg.rooms[c]
		return taken
	})
	room := newRoom(code, reg.rules, reg.clock)
	reg.rooms[code] = room
	reg.mu.Unlock()

	if _, err := room.join(connectionID, username); err != nil {
		return nil, err
	}
	return room, nil
}

func (reg *Registry) JoinRoom(roomCode, connectionID, username string) (*Room, int, error) {
	username, err := validateUsernameFormat(username)
	if err != nil {
		return nil, -1, err
	}

	room, err := reg.GetRoom(roomCode)
	if err != nil {
		return nil, -1, err
	}

	idx, err := room.join(connectionID, username)
	if err != nil {
		return nil, -1, err
	}
	return room, idx, nil
}

func (reg *Registry) GetRoom(roomCode string) (*Room, error) {
	roomCode = NormalizeRoomCode(roomCode)
	if err := ValidateRoomCode(roomCode); err != nil {
		return nil, ErrRoomNotFound
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, exists := reg.rooms[roomCode]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Sweep deletes rooms that have been empty for longer than grace and rooms
// older than lifetime. Each room is closed under its own lock before it is
// removed, so no command can be half-applied to a deleted room.
func (reg *Registry) Sweep(grace, lifetime time.Duration) []ReclaimedRoom {
	now := reg.clock.Now()

	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	var reclaimed []ReclaimedRoom
	for _, room := range rooms {
		room.mu.Lock()
		reason := room.reclaimReason(now, grace, lifetime)
		if reason != "" && !room.closed {
			room.closed = true
			reg.mu.Lock()
			if reg.rooms[room.Code] == room {
				delete(reg.rooms, room.Code)
			}
			reg.mu.Unlock()
			reclaimed = append(reclaimed, ReclaimedRoom{
				RoomCode:      room.Code,
				Reason:        reason,
				ConnectionIDs: room.connectionIDs(),
			})
		}
		room.mu.Unlock()
	}
	return reclaimed
}

func validateUsernameFormat(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameInvalid
	}
	if utf8.RuneCountInString(username) > 20 {
		return "", newError(KindValidation, ErrUsernameInvalid.Code, "Username too long (max 20 characters)")
	}
	return username, nil
}
