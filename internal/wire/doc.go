// Package wire owns the koala transfer protocol: sentinel-delimited
// frames and the header/data envelope carried inside them.
//
// Ownership boundary:
// - frame encode/decode against a byte stream
// - envelope render/parse and the routing tag
// - file-transfer frames (fn:<name>\n<bytes>)
//
// The wire format has no length prefix; a frame ends at the first
// sentinel byte (ASCII ETX, 0x03) or at end-of-stream.
package wire
