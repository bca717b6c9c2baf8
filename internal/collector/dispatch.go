package collector

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/tahomarobotics/koala/internal/observability"
	"github.com/tahomarobotics/koala/internal/wire"
)

// handleConn owns one connection's socket exclusively: a blocking
// decode loop until end-of-stream or a connection-scoped error.
func (l *Listener) handleConn(conn net.Conn) {
	defer l.handlers.Done()
	defer conn.Close()
	observability.ConnOpened()
	defer observability.ConnClosed()

	remote := conn.RemoteAddr().String()
	reader := wire.NewReader(conn, l.cfg.Limits)
	for {
		frame, err := reader.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info().Str("remote", remote).Msg("client disconnected")
			case errors.Is(err, wire.ErrTruncatedFrame):
				observability.RecordDispatchError("truncated_frame")
				log.Warn().Str("remote", remote).Msg("stream ended mid-frame, dropping partial data")
			default:
				observability.RecordDispatchError("connection_error")
				log.Error().Err(err).Str("remote", remote).Msg("connection read failed")
			}
			return
		}
		l.dispatch(remote, frame)
	}
}

// dispatch notifies observers with the raw frame text, then routes by
// kind and tag. Every failure here is frame-scoped: log and move on.
func (l *Listener) dispatch(remote string, frame wire.Frame) {
	for _, obs := range l.observers {
		obs(frame.Text)
	}

	if frame.Kind == wire.FrameFile {
		observability.RecordFileReceived()
		if err := l.files.StoreFile(frame.Filename, frame.FileData); err != nil {
			observability.RecordDispatchError("file_sink")
			log.Error().Err(err).Str("remote", remote).Str("file", frame.Filename).Msg("file sink failed")
			return
		}
		log.Info().Str("remote", remote).Str("file", frame.Filename).Int("bytes", len(frame.FileData)).Msg("file stored")
		return
	}

	env, err := wire.ParseEnvelope([]byte(frame.Text))
	if err != nil {
		observability.RecordDispatchError("malformed_envelope")
		log.Warn().Err(err).Str("remote", remote).Msg("skipping malformed frame")
		return
	}

	tag := wire.ParseTag(env.Tag())
	observability.RecordFrame(env.Tag())
	switch tag {
	case wire.TagMatch, wire.TagStrategy:
		l.storeRecord(remote, tag, env)
	case wire.TagPit:
		if l.cfg.AcceptPit {
			l.storeRecord(remote, tag, env)
			return
		}
		// Reserved tag: valid envelope, deliberate no-op.
		log.Debug().Str("remote", remote).Msg("pit envelope received, tag is reserved")
	default:
		observability.RecordDispatchError("unrecognized_tag")
		log.Warn().Str("remote", remote).Str("tag", env.Tag()).Msg("unrecognized envelope tag")
	}
}

func (l *Listener) storeRecord(remote string, tag wire.Tag, env wire.Envelope) {
	if err := l.store.StoreRecord(context.Background(), tag, env.Body); err != nil {
		observability.RecordDispatchError("store")
		log.Error().Err(err).Str("remote", remote).Str("tag", string(tag)).Msg("record store failed")
		return
	}
	log.Debug().Str("remote", remote).Str("tag", string(tag)).Int("bytes", len(env.Body)).Msg("record stored")
}
