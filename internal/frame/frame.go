// Package frame implements the length-prefixed JSON transport shared by the
// store, developer and lobby services (spec §4.1, §6.1): a 4-byte big-endian
// length header followed by a JSON body of 1..65536 bytes.
package frame

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodyLen is the largest JSON body a frame may carry.
const MaxBodyLen = 65536

// Write encodes v as JSON and writes it to w as one length-prefixed frame.
func Write(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("frame: marshal body: %w", err)
	}
	return WriteRaw(w, body)
}

// WriteRaw writes an already-encoded JSON body as one length-prefixed frame.
func WriteRaw(w io.Writer, body []byte) error {
	n := len(body)
	if n == 0 || n > MaxBodyLen {
		return fmt.Errorf("frame: body length %d out of range [1, %d]", n, MaxBodyLen)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(n))

	buf := make([]byte, 0, 4+n)
	buf = append(buf, header[:]...)
	buf = append(buf, body...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	return nil
}

// ReadRaw reads one length-prefixed frame from r and returns the raw JSON
// body, without unmarshalling it.
func ReadRaw(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("frame: read header: %w", err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n == 0 || n > MaxBodyLen {
		return nil, fmt.Errorf("frame: body length %d out of range [1, %d]", n, MaxBodyLen)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("frame: read body: %w", err)
	}
	return body, nil
}

// Read reads one length-prefixed frame from r and unmarshals its JSON body
// into v.
func Read(r io.Reader, v any) error {
	body, err := ReadRaw(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("frame: unmarshal body: %w", err)
	}
	return nil
}
