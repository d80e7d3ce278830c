package lobby

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
)

// maxB64Chunk bounds a single download_chunk read, matching
// original_source's MAX_B64_CHUNK (32 KiB raw, comfortably under 64KiB
// after base64 + JSON framing overhead).
const maxB64Chunk = 32 * 1024

// downloadSession is one in-flight chunked download, mirroring
// original_source's DownloadSession dataclass.
type downloadSession struct {
	DownloadID string
	ZipPath    string
	FileName   string
	SizeBytes  int64
	SHA256     string
	GameID     string
	Version    string
}

// downloadManager holds in-flight download sessions, keyed by download id,
// matching the module-level DOWNLOADS dict in original_source.
type downloadManager struct {
	mu       sync.Mutex
	sessions map[string]*downloadSession
}

func newDownloadManager() *downloadManager {
	return &downloadManager{sessions: make(map[string]*downloadSession)}
}

// begin registers a new download session and returns its id. The id is a
// uuid rather than original_source's secrets.token_hex(16), per
// SPEC_FULL.md's DOMAIN STACK mandate to use github.com/google/uuid for
// download session correlation ids.
func (m *downloadManager) begin(sess downloadSession) *downloadSession {
	sess.DownloadID = uuid.New().String()
	m.mu.Lock()
	m.sessions[sess.DownloadID] = &sess
	m.mu.Unlock()
	return &sess
}

func (m *downloadManager) get(id string) (*downloadSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *downloadManager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// readChunk reads at most limit bytes (clamped to maxB64Chunk) from the
// session's zip file starting at offset, matching
// handle_store_download_chunk's seek+read.
func (s *downloadSession) readChunk(offset int64, limit int) ([]byte, bool, error) {
	if limit <= 0 || limit > maxB64Chunk {
		limit = maxB64Chunk
	}
	f, err := os.Open(s.ZipPath)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, false, err
	}
	buf := make([]byte, limit)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	chunk := buf[:n]
	done := offset+int64(len(chunk)) >= s.SizeBytes
	return chunk, done, nil
}
