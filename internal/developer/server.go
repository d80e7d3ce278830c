package developer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/brightforge/gamevault/internal/developer/ingest"
	"github.com/brightforge/gamevault/internal/frame"
	"github.com/brightforge/gamevault/internal/storerpc"
	"github.com/brightforge/gamevault/internal/wire"
)

// Server accepts developer connections, grounded on the teacher's
// accept-loop shape (internal/login/server.go Run/Serve/acceptLoop/
// handleConnection), generalized from packet opcodes to frame+JSON.
type Server struct {
	deps *Deps

	mu       sync.Mutex
	listener net.Listener
}

// NewServer returns a Server dispatching over deps.
func NewServer(store *storerpc.Client, uploadRoot, tmpRoot string) *Server {
	return &Server{
		deps: &Deps{
			Store:      store,
			Sessions:   NewSessionManager(),
			Uploads:    ingest.NewManager(tmpRoot),
			UploadRoot: uploadRoot,
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
		return fmt.Errorf("developer: listening on %s: %w", addr, err)
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
	slog.Info("developer server started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			select {
			case <-ctx.Done():
			default:
				slog.Error("developer: accept failed", "error", err)
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
	defer s.deps.Sessions.Logout(conn)

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
			slog.Warn("developer: writing reply failed", "error", err)
			return
		}
	}
}
