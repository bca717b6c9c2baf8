package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/tahomarobotics/koala/internal/testutil/testlog"
)

func TestReaderSplitsFramesOnSentinel(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteEnvelope(NewEnvelope(json.RawMessage(`{"team":2046}`), "match")); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := w.WriteEnvelope(NewEnvelope(json.RawMessage(`{"alliance":"red"}`), "strat")); err != nil {
		t.Fatalf("write second: %v", err)
	}

	r := NewReader(&buf, DefaultLimits())
	first, err := r.Next()
	if err != nil {
		t.Fatalf("next first: %v", err)
	}
	if first.Kind != FrameEnvelope {
		t.Fatalf("unexpected kind: %v", first.Kind)
	}
	env, err := ParseEnvelope([]byte(first.Text))
	if err != nil {
		t.Fatalf("parse first: %v", err)
	}
	if env.Tag() != "match" {
		t.Fatalf("first tag: %q", env.Tag())
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("next second: %v", err)
	}
	env, err = ParseEnvelope([]byte(second.Text))
	if err != nil {
		t.Fatalf("parse second: %v", err)
	}
	if env.Tag() != "strat" {
		t.Fatalf("second tag: %q", env.Tag())
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReaderMalformedThenWellFormedFrame(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	buf.WriteString("this is not json")
	buf.WriteByte(Sentinel)
	w := NewWriter(&buf)
	if err := w.WriteEnvelope(NewEnvelope(json.RawMessage(`{"team":2046}`), "match")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReader(&buf, DefaultLimits())
	bad, err := r.Next()
	if err != nil {
		t.Fatalf("frame decode should succeed, parse should fail: %v", err)
	}
	if _, err := ParseEnvelope([]byte(bad.Text)); !errors.Is(err, ErrBadFrame) {
		t.Fatalf("expected ErrBadFrame, got %v", err)
	}
	good, err := r.Next()
	if err != nil {
		t.Fatalf("reader must survive a malformed frame: %v", err)
	}
	if _, err := ParseEnvelope([]byte(good.Text)); err != nil {
		t.Fatalf("well-formed frame after a bad one: %v", err)
	}
}

func TestReaderCleanEOFVersusTruncated(t *testing.T) {
	testlog.Start(t)
	r := NewReader(bytes.NewReader(nil), DefaultLimits())
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("empty stream: expected io.EOF, got %v", err)
	}

	r = NewReader(bytes.NewReader([]byte(`{"header":`)), DefaultLimits())
	if _, err := r.Next(); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("partial frame: expected ErrTruncatedFrame, got %v", err)
	}
}

func TestReaderFrameTooLarge(t *testing.T) {
	testlog.Start(t)
	payload := append(bytes.Repeat([]byte("a"), 64), Sentinel)
	r := NewReader(bytes.NewReader(payload), Limits{MaxFrameBytes: 16})
	if _, err := r.Next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestFileFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	data := []byte{0x00, 0x01, 0xff, '\n', 'x'}
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteFile("photo.jpg", data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	f, err := NewReader(&buf, DefaultLimits()).Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if f.Kind != FrameFile {
		t.Fatalf("expected file frame, got %v", f.Kind)
	}
	if f.Filename != "photo.jpg" {
		t.Fatalf("filename: %q", f.Filename)
	}
	if !bytes.Equal(f.FileData, data) {
		t.Fatalf("file bytes mismatch: %v", f.FileData)
	}
}

func TestFileFrameWithoutNewlineIsRejected(t *testing.T) {
	testlog.Start(t)
	r := NewReader(bytes.NewReader([]byte{'f', 'n', ':', 'x', Sentinel}), DefaultLimits())
	if _, err := r.Next(); !errors.Is(err, ErrBadFileFrame) {
		t.Fatalf("expected ErrBadFileFrame, got %v", err)
	}
}

func TestWriteFileRejectsBadNames(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteFile("", []byte("x")); !errors.Is(err, ErrBadFileFrame) {
		t.Fatalf("empty name: %v", err)
	}
	if err := w.WriteFile("a\nb", []byte("x")); !errors.Is(err, ErrBadFileFrame) {
		t.Fatalf("newline in name: %v", err)
	}
}

func TestWriterRejectsSentinelInPayload(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	// A raw control byte inside a JSON string is already invalid JSON, so
	// the envelope path fails validation before the sentinel backstop.
	body := json.RawMessage(append(append([]byte(`"a`), Sentinel), []byte(`b"`)...))
	err := w.WriteEnvelope(NewEnvelope(body, "match"))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("envelope: expected ErrInvalidPayload, got %v", err)
	}
	if err := w.WriteFile("f.bin", []byte{1, Sentinel, 2}); !errors.Is(err, ErrSentinelInPayload) {
		t.Fatalf("file: expected ErrSentinelInPayload, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should reach the stream, wrote %d bytes", buf.Len())
	}
}
