package server

import (
	"sync"
)

// SessionInfo binds a connection to the room it is seated in.
type SessionInfo struct {
	ConnectionID string
	RoomCode     string
	Username     string
}

type SessionManager struct {
	sessions map[string]SessionInfo // connectionID -> SessionInfo
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]SessionInfo),
	}
}

// StoreSession binds the connection; a connection is in at most one room.
func (sm *SessionManager) StoreSession(info SessionInfo) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[info.ConnectionID]; exists {
		return ErrAlreadyInRoom
	}
	sm.sessions[info.ConnectionID] = info
	return nil
}

func (sm *SessionManager) GetSession(connectionID string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[connectionID]
	if !exists {
		return SessionInfo{}, ErrNotInRoom
	}

	return session, nil
}

// RemoveSession unbinds the connection if it is still bound to roomCode.
// An empty roomCode unbinds unconditionally.
func (sm *SessionManager) RemoveSession(connectionID, roomCode string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[connectionID]
	if !exists || (roomCode != "" && session.RoomCode != roomCode) {
		return false
	}
	delete(sm.sessions, connectionID)
	return true
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
