// Package developer implements the developer service (D): developer
// account auth and game/version management, grounded on the teacher's
// internal/login session/handler/server shape and original_source's
// server/developer_server.py for domain semantics.
package developer

import (
	"net"
	"sync"
)

// Session is the authenticated state bound to one developer connection,
// mirroring original_source's DevSession dataclass.
type Session struct {
	DeveloperID int64
	Username    string
}

// SessionManager enforces the single-session-per-developer invariant,
// grounded on the teacher's SessionManager (internal/login/session_manager.go)
// generalized from account-keyed session keys to connection+developerId
// bookkeeping, matching original_source's SESSIONS/ONLINE_DEVS dicts.
type SessionManager struct {
	mu      sync.Mutex
	byConn  map[net.Conn]*Session
	byDevID map[int64]net.Conn
}

// NewSessionManager returns an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		byConn:  make(map[net.Conn]*Session),
		byDevID: make(map[int64]net.Conn),
	}
}

// Login registers conn as logged in as developerID/username. It reports
// false if that developer is already online on another connection.
func (m *SessionManager) Login(conn net.Conn, developerID int64, username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, online := m.byDevID[developerID]; online {
		return false
	}
	sess := &Session{DeveloperID: developerID, Username: username}
	m.byConn[conn] = sess
	m.byDevID[developerID] = conn
	return true
}

// Get returns the session bound to conn, if any.
func (m *SessionManager) Get(conn net.Conn) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byConn[conn]
	return s, ok
}

// Logout clears the session bound to conn, matching handle_logout /
// the finally-block cleanup in original_source's handle().
func (m *SessionManager) Logout(conn net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byConn[conn]
	if !ok {
		return
	}
	delete(m.byConn, conn)
	delete(m.byDevID, sess.DeveloperID)
}
