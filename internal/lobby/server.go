package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/lobby/room"
	"github.com/brightforge/gamevault/internal/model"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// Server accepts player (and unauthenticated game-server post_result)
// connections, grounded on internal/developer.Server's accept-loop shape.
type Server struct {
	deps *Deps

	mu       sync.Mutex
	listener net.Listener
}

// NewServer returns a Server wired to store/engine/sessions. sessions is
// constructed by the caller (via NewSessionManager) so it can also be
// passed to room.NewEngine as its Broadcaster before the Server exists.
func NewServer(store *storerpc.Client, engine *room.Engine, sessions *SessionManager) *Server {
	return &Server{
		deps: &Deps{
			Store:     store,
			Sessions:  sessions,
			Downloads: newDownloadManager(),
			Engine:    engine,
		},
	}
}

// Addr returns the bound address, or nil before Run/Serve starts.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on addr and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("lobby: listening on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("lobby server started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			select {
			case <-ctx.Done():
			default:
				slog.Error("lobby: accept failed", "error", err)
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.cleanupConnection(ctx, conn)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		body, err := frame.ReadRaw(conn)
		if err != nil {
			return
		}

		var req wire.Request
		var reply wire.Reply
		if err := json.Unmarshal(body, &req); err != nil {
			reply = wire.Err("bad_request", nil)
		} else {
			reply = Dispatch(ctx, s.deps, conn, req.Type, req.Data)
		}

		if err := frame.Write(conn, reply); err != nil {
			slog.Warn("lobby: writing reply failed", "error", err)
			return
		}
	}
}

// cleanupConnection handles a disconnecting player: if they were host of a
// room that is mid-match, the match is force-finalized with reason
// "disconnect" before the forced leave, matching original_source's
// _cleanup_connection.
func (s *Server) cleanupConnection(ctx context.Context, conn net.Conn) {
	sess, ok := s.deps.Sessions.Logout(conn)
	if !ok {
		return
	}
	roomID := sess.RoomID()
	if roomID == 0 {
		return
	}

	live, err := s.deps.Engine.Registry.Ensure(ctx, s.deps.Store, roomID)
	if err != nil || live == nil {
		return
	}
	snap := live.Snapshot()
	if snap.Status == model.RoomPlaying && snap.HostPlayerID == sess.PlayerID {
		if err := s.deps.Engine.FinishMatch(ctx, roomID, &room.MatchResult{RoomID: roomID, Reason: "disconnect"}); err != nil {
			slog.Warn("lobby: force-finish on host disconnect failed", "roomId", roomID, "error", err)
		}
	}

	players, hostChanged, newHost := live.RemovePlayer(sess.PlayerID)
	if _, err := s.deps.Store.Call(ctx, "Room", "remove_member", map[string]any{"roomId": roomID, "playerId": sess.PlayerID}); err != nil {
		slog.Warn("lobby: removing member on disconnect failed", "roomId", roomID, "error", err)
	}
	if hostChanged {
		if _, err := s.deps.Store.Call(ctx, "Room", "set_host", map[string]any{"roomId": roomID, "hostPlayerId": newHost}); err != nil {
			slog.Warn("lobby: reassigning host on disconnect failed", "roomId", roomID, "error", err)
		}
	}
	if len(players) == 0 {
		if _, err := s.deps.Store.Call(ctx, "Room", "delete_if_empty", map[string]any{"roomId": roomID}); err != nil {
			slog.Warn("lobby: deleting empty room on disconnect failed", "roomId", roomID, "error", err)
		}
		s.deps.Engine.Registry.Delete(roomID)
		return
	}
	for _, pid := range players {
		s.deps.Sessions.Push(pid, "player_left", map[string]any{"roomId": roomID, "playerId": sess.PlayerID, "players": players})
		if hostChanged {
			s.deps.Sessions.Push(pid, "host_changed", map[string]any{"roomId": roomID, "hostPlayerId": newHost})
		}
	}
}
