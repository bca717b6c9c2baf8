package wire

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/tahomarobotics/koala/internal/testutil/testlog"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := NewEnvelope(json.RawMessage(`{"team":2046,"auto":{"leave":true}}`), "match", "qual-12")
	payload, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := ParseEnvelope(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Tag() != "match" {
		t.Fatalf("tag mismatch: got %q", out.Tag())
	}
	if !reflect.DeepEqual(out.Headers, []string{"match", "qual-12"}) {
		t.Fatalf("headers mismatch: %v", out.Headers)
	}
	var want, got map[string]any
	if err := json.Unmarshal(in.Body, &want); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	if err := json.Unmarshal(out.Body, &got); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("body mismatch: got=%v want=%v", got, want)
	}
}

func TestEnvelopeScalarAndArrayBodies(t *testing.T) {
	testlog.Start(t)
	for _, body := range []string{`3`, `"note"`, `[1,2,3]`, `null`} {
		env := NewEnvelope(json.RawMessage(body), "strat")
		payload, err := env.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", body, err)
		}
		out, err := ParseEnvelope(payload)
		if err != nil {
			t.Fatalf("parse %s: %v", body, err)
		}
		if string(out.Body) != body {
			t.Fatalf("body %s round-tripped to %s", body, out.Body)
		}
	}
}

func TestEncodeRejectsEmptyHeaders(t *testing.T) {
	testlog.Start(t)
	_, err := NewEnvelope(json.RawMessage(`{}`)).Encode()
	if !errors.Is(err, ErrMissingTag) {
		t.Fatalf("expected ErrMissingTag, got %v", err)
	}
}

func TestEncodeRejectsInvalidBody(t *testing.T) {
	testlog.Start(t)
	_, err := NewEnvelope(json.RawMessage(`{"data": = 3}`), "match").Encode()
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestParseEnvelopeMissingHeader(t *testing.T) {
	testlog.Start(t)
	_, err := ParseEnvelope([]byte(`{"data":{"team":2046}}`))
	if !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("expected ErrMissingHeader, got %v", err)
	}
}

func TestParseEnvelopeMissingTag(t *testing.T) {
	testlog.Start(t)
	_, err := ParseEnvelope([]byte(`{"header":{},"data":1}`))
	if !errors.Is(err, ErrMissingTag) {
		t.Fatalf("expected ErrMissingTag for empty header, got %v", err)
	}
	_, err = ParseEnvelope([]byte(`{"header":{"h0":12},"data":1}`))
	if !errors.Is(err, ErrMissingTag) {
		t.Fatalf("expected ErrMissingTag for non-string h0, got %v", err)
	}
}

func TestParseEnvelopeBadJSON(t *testing.T) {
	testlog.Start(t)
	_, err := ParseEnvelope([]byte(`not json at all`))
	if !errors.Is(err, ErrBadFrame) {
		t.Fatalf("expected ErrBadFrame, got %v", err)
	}
}

func TestParseTagClosedSet(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Tag{
		"match":   TagMatch,
		"strat":   TagStrategy,
		"pit":     TagPit,
		"Match":   TagUnknown,
		"unknown": TagUnknown,
		"":        TagUnknown,
	}
	for raw, want := range cases {
		if got := ParseTag(raw); got != want {
			t.Fatalf("ParseTag(%q) = %q, want %q", raw, got, want)
		}
	}
}
