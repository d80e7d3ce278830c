// Package ingest assembles a chunked game-version upload into a verified
// zip file and extracts it, grounded on original_source's
// server/developer_server.py (UploadSession, handle_upload_init/chunk/finish).
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Session tracks one in-progress chunked upload, mirroring
// original_source's UploadSession dataclass.
type Session struct {
	UploadID        string
	DeveloperID     int64
	GameID          string
	Version         string
	FileName        string
	ExpectedSize    int64
	ExpectedSHA256  string
	TempPath        string
	AutoCreatedGame bool

	mu       sync.Mutex
	received int64
	nextSeq  int
	hasher   hash.Hash
}

// Manager holds in-flight upload sessions, keyed by upload ID, matching
// the module-level UPLOADS dict in original_source.
type Manager struct {
	tmpRoot string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager that stages partial uploads under tmpRoot.
func NewManager(tmpRoot string) *Manager {
	return &Manager{tmpRoot: tmpRoot, sessions: make(map[string]*Session)}
}

// Begin creates a new upload session and its backing temp file. The
// returned upload ID is a random token; a uuid is used internally as the
// temp-file correlation id to avoid collisions across restarts within the
// same tmpRoot.
func (m *Manager) Begin(developerID int64, gameID, version, fileName string, expectedSize int64, expectedSHA256 string, autoCreated bool) (*Session, error) {
	if err := os.MkdirAll(m.tmpRoot, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: creating tmp root: %w", err)
	}
	uploadID := hex.EncodeToString(uuid.New()[:])
	tempPath := filepath.Join(m.tmpRoot, uuid.New().String()+".zip.part")
	if err := os.WriteFile(tempPath, nil, 0o644); err != nil {
		return nil, fmt.Errorf("ingest: initializing temp upload file: %w", err)
	}

	sess := &Session{
		UploadID:        uploadID,
		DeveloperID:     developerID,
		GameID:          gameID,
		Version:         version,
		FileName:        fileName,
		ExpectedSize:    expectedSize,
		ExpectedSHA256:  expectedSHA256,
		TempPath:        tempPath,
		AutoCreatedGame: autoCreated,
		hasher:          sha256.New(),
	}

	m.mu.Lock()
	m.sessions[uploadID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get returns the upload session for id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove deletes the session for id from the manager (called once the
// zip has been moved into permanent storage, or on failure cleanup).
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// NextSeq returns the next expected chunk sequence number.
func (s *Session) NextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

// Received returns the number of bytes written so far.
func (s *Session) Received() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// AppendChunk validates seq, appends chunk to the temp file and updates
// the running hash, returning the new received total. Chunks must arrive
// strictly in order (bad_seq) and must not exceed the declared size
// (too_large), matching handle_upload_chunk.
func (s *Session) AppendChunk(seq int, chunk []byte) (received int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.nextSeq {
		return s.received, &ErrBadSeq{Expected: s.nextSeq}
	}
	if len(chunk) == 0 {
		return s.received, ErrEmptyChunk
	}
	if s.received+int64(len(chunk)) > s.ExpectedSize {
		return s.received, ErrTooLarge
	}

	f, err := os.OpenFile(s.TempPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return s.received, fmt.Errorf("ingest: opening temp upload file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(chunk); err != nil {
		return s.received, fmt.Errorf("ingest: writing chunk: %w", err)
	}

	s.hasher.Write(chunk)
	s.received += int64(len(chunk))
	s.nextSeq++
	return s.received, nil
}

// Finish validates the assembled upload is complete and hash-correct,
// matching handle_upload_finish's pre-move checks.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.received != s.ExpectedSize {
		return &ErrSizeMismatch{Received: s.received, Expected: s.ExpectedSize}
	}
	digest := hex.EncodeToString(s.hasher.Sum(nil))
	if digest != s.ExpectedSHA256 {
		return &ErrHashMismatch{Got: digest, Expected: s.ExpectedSHA256}
	}
	return nil
}

// ErrBadSeq reports a chunk arriving out of order.
type ErrBadSeq struct{ Expected int }

func (e *ErrBadSeq) Error() string { return fmt.Sprintf("bad_seq: expected %d", e.Expected) }

// ErrEmptyChunk is a chunk with zero bytes after base64 decoding.
var ErrEmptyChunk = fmt.Errorf("empty_chunk")

// ErrTooLarge is a chunk that would exceed the declared upload size.
var ErrTooLarge = fmt.Errorf("too_large")

// ErrSizeMismatch reports a completed upload whose byte count doesn't
// match what was declared at init.
type ErrSizeMismatch struct {
	Received, Expected int64
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("size_mismatch: received %d, expected %d", e.Received, e.Expected)
}

// ErrHashMismatch reports a completed upload whose sha256 doesn't match
// what was declared at init.
type ErrHashMismatch struct {
	Got, Expected string
}

func (e *ErrHashMismatch) Error() string {
	return fmt.Sprintf("hash_mismatch: got %s, expected %s", e.Got, e.Expected)
}
