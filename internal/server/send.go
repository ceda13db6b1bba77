package server

import (
	"log/slog"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/message"
)

// SendFilter encodes backend output into per-transport payloads.
//
// SendFilter is not safe for concurrent use.
type SendFilter struct {
	backend       *backend.SendFilter
	mcuCodec      codec.Codec
	frontendCodec codec.Codec
	logger        *slog.Logger
}

// Input buffers a backend output event or announcement.
func (f *SendFilter) Input(event backend.SendEvent) {
	f.backend.Input(event)
}

// Output encodes the next buffered event. A leg that fails to encode is
// logged and left empty; nil is returned when nothing could be encoded.
func (f *SendFilter) Output() *SendOutputEvent {
	out := f.backend.Output()
	if out == nil {
		return nil
	}
	send := &SendOutputEvent{
		SerialSend:    f.encode(TransportSerial, f.mcuCodec, out.MCU),
		WebsocketSend: f.encode(TransportWebsocket, f.frontendCodec, out.Frontend),
	}
	if out.File != nil {
		record, err := codec.EncodeState(out.File)
		if err != nil {
			f.encodeFailed(TransportFile, err)
		} else {
			send.FileSend = record
		}
	}
	if !send.HasData() {
		return nil
	}
	return send
}

func (f *SendFilter) encode(transport string, c codec.Codec, msg message.Message) []byte {
	if msg == nil {
		return nil
	}
	frame, err := c.Encode(msg)
	if err != nil {
		f.encodeFailed(transport, err)
		return nil
	}
	return frame
}

func (f *SendFilter) encodeFailed(transport string, err error) {
	f.logger.Error("dropped unencodable message",
		"transport", transport,
		"error", err,
	)
}
