package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Tag is the envelope routing tag carried in header slot h0.
type Tag string

const (
	TagMatch    Tag = "match"
	TagStrategy Tag = "strat"
	TagPit      Tag = "pit"
	TagUnknown  Tag = ""
)

// ParseTag classifies a raw h0 value against the closed tag set.
func ParseTag(raw string) Tag {
	switch raw {
	case string(TagMatch):
		return TagMatch
	case string(TagStrategy):
		return TagStrategy
	case string(TagPit):
		return TagPit
	default:
		return TagUnknown
	}
}

// Envelope is one logical message: ordered header tags plus an opaque
// JSON body. The body is never inspected here beyond syntactic validity.
type Envelope struct {
	Headers []string
	Body    json.RawMessage
}

// NewEnvelope builds an envelope for send. The first header becomes the
// routing tag.
func NewEnvelope(body json.RawMessage, headers ...string) Envelope {
	return Envelope{Headers: headers, Body: body}
}

// Tag returns the raw h0 value, or "" for a header-less envelope.
func (e Envelope) Tag() string {
	if len(e.Headers) == 0 {
		return ""
	}
	return e.Headers[0]
}

func (e Envelope) Validate() error {
	if len(e.Headers) == 0 {
		return ErrMissingTag
	}
	if !json.Valid(e.Body) {
		return ErrInvalidPayload
	}
	return nil
}

type wireEnvelope struct {
	Header map[string]json.RawMessage `json:"header"`
	Data   json.RawMessage            `json:"data"`
}

// Encode renders the envelope as its frame payload:
// {"header":{"h0":...,"h1":...},"data":<body>}.
func (e Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	header := make(map[string]json.RawMessage, len(e.Headers))
	for i, h := range e.Headers {
		quoted, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		header["h"+strconv.Itoa(i)] = quoted
	}
	return json.Marshal(wireEnvelope{Header: header, Data: e.Body})
}

// ParseEnvelope decodes one frame payload back into an envelope.
// A missing header object or a missing/non-string h0 is a malformed
// envelope; callers skip the frame and keep the connection open.
func ParseEnvelope(text []byte) (Envelope, error) {
	var raw wireEnvelope
	if err := json.Unmarshal(text, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if raw.Header == nil {
		return Envelope{}, ErrMissingHeader
	}

	var headers []string
	for i := 0; ; i++ {
		slot, ok := raw.Header["h"+strconv.Itoa(i)]
		if !ok {
			break
		}
		var h string
		if err := json.Unmarshal(slot, &h); err != nil {
			if i == 0 {
				return Envelope{}, ErrMissingTag
			}
			return Envelope{}, fmt.Errorf("%w: header h%d is not a string", ErrBadFrame, i)
		}
		headers = append(headers, h)
	}
	if len(headers) == 0 {
		return Envelope{}, ErrMissingTag
	}

	body := raw.Data
	if body == nil {
		body = json.RawMessage("null")
	}
	return Envelope{Headers: headers, Body: body}, nil
}
