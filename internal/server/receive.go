package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/protocol"
	"github.com/pez-globo/ventserver/internal/rotary"
)

// Observer is notified of recovered transport-level conditions.
type Observer interface {
	DecodeFailed(transport string, kind message.Kind)
	FrontendConnectionChanged(connected bool)
	LogReplicationChanged(mcuResets, unacknowledged int)
}

type nopObserver struct{}

func (nopObserver) DecodeFailed(string, message.Kind) {}
func (nopObserver) FrontendConnectionChanged(bool) {}
func (nopObserver) LogReplicationChanged(int, int) {}

// ReceiveFilter decodes transport payloads and drives the backend.
//
// ReceiveFilter is not safe for concurrent use.
type ReceiveFilter struct {
	buffer protocol.Channel[*ReceiveEvent]

	backend    *backend.ReceiveFilter
	rotary     *rotary.ReceiveFilter
	connection FrontendConnectionEvent
	timeout    time.Duration

	mcuCodec      codec.Codec
	frontendCodec codec.Codec

	observer   Observer
	logger     *slog.Logger
	logResets  int
	logBacklog int
}

// Input buffers an event. Events without data are ignored.
func (f *ReceiveFilter) Input(event *ReceiveEvent) {
	if !event.HasData() {
		return
	}
	f.buffer.Push(event)
}

// Output consumes one buffered event. Once an event has been consumed it
// always returns a ReceiveOutputEvent, whose ServerSend is nil when the
// backend had nothing to send.
func (f *ReceiveFilter) Output() *ReceiveOutputEvent {
	event, ok := f.buffer.Pop()
	if !ok {
		return nil
	}
	f.updateConnection(event)

	be := &backend.ReceiveEvent{Time: event.Time}
	if event.SerialReceive != nil {
		be.MCU = f.decode(TransportSerial, f.mcuCodec, event.SerialReceive)
	}
	if event.WebsocketReceive != nil {
		be.Frontend = f.decode(TransportWebsocket, f.frontendCodec, event.WebsocketReceive)
	}
	if event.RotaryEncoderReceive != nil {
		f.rotary.Input(&rotary.ReceiveEvent{Time: event.Time, Sample: *event.RotaryEncoderReceive})
		if state := f.rotary.Output(); state != nil {
			be.Local = state
		}
	}
	if event.FileReceive != nil {
		msg, err := codec.DecodeState(event.FileReceive)
		if err != nil {
			f.decodeFailed(TransportFile, err)
		} else {
			be.File = msg
		}
	}

	f.backend.Input(be)
	out := &ReceiveOutputEvent{
		ServerSend:      f.backend.Output(),
		FrontendDelayed: !f.connection.IsFrontendConnected && f.backend.FrontendPending(),
	}
	f.observeLogReplication()
	return out
}

func (f *ReceiveFilter) observeLogReplication() {
	resets, backlog := f.backend.LogReplication()
	if resets == f.logResets && backlog == f.logBacklog {
		return
	}
	f.logResets, f.logBacklog = resets, backlog
	f.observer.LogReplicationChanged(resets, backlog)
}

func (f *ReceiveFilter) decode(transport string, c codec.Codec, data []byte) message.Message {
	msg, err := c.Decode(data)
	if err != nil {
		f.decodeFailed(transport, err)
		return nil
	}
	return msg
}

func (f *ReceiveFilter) decodeFailed(transport string, err error) {
	kind := message.KindUnknown
	var de *message.DataError
	if errors.As(err, &de) {
		kind = de.Kind
	}
	f.logger.Warn("dropped undecodable payload",
		"transport", transport,
		"kind", kind.String(),
		"error", err,
	)
	f.observer.DecodeFailed(transport, kind)
}

// updateConnection marks the frontend connected on websocket traffic and
// disconnected once event time passes the liveness timeout without any.
func (f *ReceiveFilter) updateConnection(event *ReceiveEvent) {
	if event.WebsocketReceive != nil {
		if !event.Time.IsZero() {
			f.connection.LastConnectionTime = event.Time
		}
		f.setConnected(true)
		return
	}
	if event.Time.IsZero() || !f.connection.IsFrontendConnected {
		return
	}
	if event.Time.Sub(f.connection.LastConnectionTime) > f.timeout {
		f.setConnected(false)
	}
}

func (f *ReceiveFilter) setConnected(connected bool) {
	if f.connection.IsFrontendConnected == connected {
		return
	}
	f.connection.IsFrontendConnected = connected
	f.backend.SetFrontendConnected(connected)
	f.logger.Info("frontend connection changed",
		"connected", connected,
		"last_connection_time", f.connection.LastConnectionTime,
	)
	f.observer.FrontendConnectionChanged(connected)
}

// Connection returns the current frontend liveness.
func (f *ReceiveFilter) Connection() FrontendConnectionEvent {
	return f.connection
}

// Backend exposes the backend filter for seeding and state inspection.
func (f *ReceiveFilter) Backend() *backend.ReceiveFilter {
	return f.backend
}
