package frame

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := map[string]any{"type": "ping", "seq": float64(3)}

	if err := Write(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out map[string]any
	if err := Read(&buf, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out["type"] != "ping" || out["seq"] != float64(3) {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}

func TestWriteRejectsEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRaw(&buf, nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestWriteRejectsOversizeBody(t *testing.T) {
	var buf bytes.Buffer
	big := make([]byte, MaxBodyLen+1)
	for i := range big {
		big[i] = 'a'
	}
	if err := WriteRaw(&buf, big); err == nil {
		t.Fatal("expected error for oversize body")
	}
}

func TestReadRejectsTruncatedHeader(t *testing.T) {
	r := strings.NewReader("\x00\x00")
	var out map[string]any
	if err := Read(r, &out); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestReadRejectsTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	var out map[string]any
	if err := Read(truncated, &out); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestReadRejectsOversizeLength(t *testing.T) {
	r := strings.NewReader("\xff\xff\xff\xff")
	var out map[string]any
	if err := Read(r, &out); err == nil {
		t.Fatal("expected error for oversize declared length")
	}
}
