// Package filesink stores file-transfer payloads under one directory.
// Client-supplied names are reduced to their base name so a peer cannot
// write outside the sink root.
package filesink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

var ErrBadFilename = errors.New("filesink: unusable filename")

type Sink struct {
	root string
}

func New(root string) (*Sink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filesink: create root %s: %w", root, err)
	}
	return &Sink{root: root}, nil
}

func (s *Sink) Root() string {
	return s.root
}

// StoreFile writes data under the sink root. Directory components in
// the supplied name are stripped.
func (s *Sink) StoreFile(name string, data []byte) error {
	base := filepath.Base(name)
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	path := filepath.Join(s.root, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("filesink: write %s: %w", base, err)
	}
	log.Info().Str("file", base).Int("bytes", len(data)).Msg("file written")
	return nil
}
