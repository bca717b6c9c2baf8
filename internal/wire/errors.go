package wire

import "errors"

var (
	ErrMissingHeader     = errors.New("wire: envelope has no header object")
	ErrMissingTag        = errors.New("wire: envelope header has no h0 tag")
	ErrBadFrame          = errors.New("wire: frame is not valid JSON")
	ErrBadFileFrame      = errors.New("wire: file frame has no filename line")
	ErrTruncatedFrame    = errors.New("wire: stream ended mid-frame")
	ErrFrameTooLarge     = errors.New("wire: frame exceeds size limit")
	ErrInvalidPayload    = errors.New("wire: payload is not valid JSON")
	ErrSentinelInPayload = errors.New("wire: payload contains the frame sentinel")
)
