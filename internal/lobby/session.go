// Package lobby implements the lobby service (L): player account auth,
// catalog browsing, chunked downloads, and the room/match engine, grounded
// on the teacher's internal/login session/handler/server shape and
// original_source's server/lobby_server.py for domain semantics.
package lobby

import (
	"net"
	"sync"

	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/wire"
)

// connWriter serializes frame writes on one connection, since replies and
// pushed events (spec §4.3 event channel) share the same socket.
type connWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *connWriter) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return frame.Write(w.conn, v)
}

// Session is the authenticated state bound to one player connection,
// mirroring original_source's PlayerSession dataclass (player_id, username,
// room_id).
type Session struct {
	PlayerID int64
	Username string

	mu     sync.Mutex
	roomID int64
	writer *connWriter
}

// RoomID returns the room this session currently belongs to, or 0.
func (s *Session) RoomID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SetRoomID records which room this session currently belongs to.
func (s *Session) SetRoomID(id int64) {
	s.mu.Lock()
	s.roomID = id
	s.mu.Unlock()
}

// PushEvent sends a server-initiated event frame to this session's
// connection, matching _push_event.
func (s *Session) PushEvent(name string, data any) error {
	return s.writer.write(wire.NewEvent(name, data))
}

// SessionManager enforces the single-session-per-player invariant and
// supports looking a session up by player id to push events, grounded on
// the teacher's SessionManager (internal/login/session_manager.go) and
// original_source's SESSIONS/ONLINE_PLAYERS module dicts.
type SessionManager struct {
	mu         sync.Mutex
	byConn     map[net.Conn]*Session
	byPlayerID map[int64]*Session
}

// NewSessionManager returns an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		byConn:     make(map[net.Conn]*Session),
		byPlayerID: make(map[int64]*Session),
	}
}

// Login registers conn as logged in as playerID/username. It reports false
// if that player is already online on another connection.
func (m *SessionManager) Login(conn net.Conn, playerID int64, username string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, online := m.byPlayerID[playerID]; online {
		return nil, false
	}
	sess := &Session{PlayerID: playerID, Username: username, writer: &connWriter{conn: conn}}
	m.byConn[conn] = sess
	m.byPlayerID[playerID] = sess
	return sess, true
}

// Get returns the session bound to conn, if any.
func (m *SessionManager) Get(conn net.Conn) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byConn[conn]
	return s, ok
}

// GetByPlayerID returns the session for playerID, if currently online.
func (m *SessionManager) GetByPlayerID(playerID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byPlayerID[playerID]
	return s, ok
}

// Logout clears the session bound to conn and returns it, if any, matching
// original_source's _cleanup_connection session popping.
func (m *SessionManager) Logout(conn net.Conn) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(m.byConn, conn)
	delete(m.byPlayerID, sess.PlayerID)
	return sess, true
}

// Online returns a copy (id and username) of each logged-in session, matching
// handle_player_list.
func (m *SessionManager) Online() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Session, 0, len(m.byPlayerID))
	for _, s := range m.byPlayerID {
		out = append(out, Session{PlayerID: s.PlayerID, Username: s.Username})
	}
	return out
}

// Push implements room.Broadcaster: sends name/data to playerID's session
// if it is currently connected, matching _push_event_to_player (a miss is
// silently ignored — the player may have disconnected mid-match).
func (m *SessionManager) Push(playerID int64, name string, data any) {
	sess, ok := m.GetByPlayerID(playerID)
	if !ok {
		return
	}
	_ = sess.PushEvent(name, data)
}
