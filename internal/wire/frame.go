package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// Sentinel terminates every frame on the wire. It is ASCII ETX and must
// never appear inside a frame payload; WriteEnvelope and WriteFile reject
// payloads that contain it rather than desync the stream.
const Sentinel byte = 0x03

const fileFramePrefix = "fn:"

// FrameKind discriminates the two physical frame shapes.
type FrameKind int

const (
	FrameEnvelope FrameKind = iota
	FrameFile
)

// Frame is one complete unit read off the stream. Text always holds the
// raw frame bytes for observer callbacks; Filename and FileData are set
// only for file frames.
type Frame struct {
	Kind     FrameKind
	Text     string
	Filename string
	FileData []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 16 * 1024 * 1024}
}

// Reader scans a byte stream for sentinel-delimited frames.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxFrameBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Reader{br: bufio.NewReader(r), limits: limits}
}

// Next returns the next complete frame. A clean end-of-stream with no
// buffered bytes is io.EOF (peer disconnected); end-of-stream mid-frame
// is ErrTruncatedFrame. Both end the conversation; per-frame content
// errors are left to ParseEnvelope so the caller can skip and continue.
func (r *Reader) Next() (Frame, error) {
	var buf bytes.Buffer
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if buf.Len() == 0 {
					return Frame{}, io.EOF
				}
				return Frame{}, ErrTruncatedFrame
			}
			return Frame{}, err
		}
		if b == Sentinel {
			break
		}
		if buf.Len() >= r.limits.MaxFrameBytes {
			return Frame{}, ErrFrameTooLarge
		}
		buf.WriteByte(b)
	}
	return splitFrame(buf.Bytes())
}

// splitFrame detects the file-transfer alternate framing. Everything
// else is an envelope frame; its JSON validity is not checked here.
func splitFrame(raw []byte) (Frame, error) {
	text := string(raw)
	if !strings.HasPrefix(text, fileFramePrefix) {
		return Frame{Kind: FrameEnvelope, Text: text}, nil
	}
	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		return Frame{}, ErrBadFileFrame
	}
	name := text[len(fileFramePrefix):nl]
	if name == "" {
		return Frame{}, ErrBadFileFrame
	}
	return Frame{
		Kind:     FrameFile,
		Text:     text,
		Filename: name,
		FileData: raw[nl+1:],
	}, nil
}

// Writer emits sentinel-terminated frames.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEnvelope frames and sends one envelope.
func (w *Writer) WriteEnvelope(e Envelope) error {
	payload, err := e.Encode()
	if err != nil {
		return err
	}
	return w.writeFrame(payload)
}

// WriteFile frames and sends raw file bytes under the fn: framing.
// The name must not contain the newline that ends the filename line.
func (w *Writer) WriteFile(name string, data []byte) error {
	if name == "" || strings.ContainsRune(name, '\n') {
		return ErrBadFileFrame
	}
	payload := make([]byte, 0, len(fileFramePrefix)+len(name)+1+len(data))
	payload = append(payload, fileFramePrefix...)
	payload = append(payload, name...)
	payload = append(payload, '\n')
	payload = append(payload, data...)
	return w.writeFrame(payload)
}

func (w *Writer) writeFrame(payload []byte) error {
	if bytes.IndexByte(payload, Sentinel) >= 0 {
		return ErrSentinelInPayload
	}
	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, Sentinel)
	_, err := w.w.Write(framed)
	return err
}
