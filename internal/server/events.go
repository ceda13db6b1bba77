// Package server unifies the physical transports in front of the backend
// protocol.
//
// Transport drivers hand raw payloads to the builders in this package. The
// ReceiveFilter decodes them (CBOR from the MCU serial link, MessagePack
// from the frontend websocket, JSON file records), tracks frontend liveness
// and drives the backend. The SendFilter encodes backend output back into
// per-transport payloads.
package server

import (
	"time"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/rotary"
)

// Transport names used in log records and metrics.
const (
	TransportSerial    = "serial"
	TransportWebsocket = "websocket"
	TransportRotary    = "rotary"
	TransportFile      = "file"
)

// ReceiveEvent is one raw inbound unit from a transport driver.
type ReceiveEvent struct {
	Time                 time.Time
	SerialReceive        []byte
	WebsocketReceive     []byte
	RotaryEncoderReceive *rotary.Sample
	FileReceive          *codec.StateData
}

// HasData reports whether the event carries a time or any payload.
func (e *ReceiveEvent) HasData() bool {
	if e == nil {
		return false
	}
	return !e.Time.IsZero() ||
		e.SerialReceive != nil ||
		e.WebsocketReceive != nil ||
		e.RotaryEncoderReceive != nil ||
		e.FileReceive != nil
}

// MakeSerialReceive builds an event for bytes read from the MCU link.
func MakeSerialReceive(data []byte, t time.Time) *ReceiveEvent {
	return &ReceiveEvent{Time: t, SerialReceive: data}
}

// MakeWebsocketReceive builds an event for bytes read from the frontend.
func MakeWebsocketReceive(data []byte, t time.Time) *ReceiveEvent {
	return &ReceiveEvent{Time: t, WebsocketReceive: data}
}

// MakeRotaryEncoderReceive builds an event for an encoder sample.
func MakeRotaryEncoderReceive(sample rotary.Sample, t time.Time) *ReceiveEvent {
	return &ReceiveEvent{Time: t, RotaryEncoderReceive: &sample}
}

// MakeFileReceive builds an event for a record read from the state file.
func MakeFileReceive(record *codec.StateData, t time.Time) *ReceiveEvent {
	return &ReceiveEvent{Time: t, FileReceive: record}
}

// ReceiveOutputEvent is the result of one receive step. FrontendDelayed is
// set when frontend output was pending but withheld because the frontend is
// disconnected.
type ReceiveOutputEvent struct {
	ServerSend      *backend.OutputEvent
	FrontendDelayed bool
}

// HasData reports whether there is output or a delay to report.
func (e *ReceiveOutputEvent) HasData() bool {
	if e == nil {
		return false
	}
	return e.ServerSend.HasData() || e.FrontendDelayed
}

// SendOutputEvent holds the encoded payload for each transport.
type SendOutputEvent struct {
	SerialSend    []byte
	WebsocketSend []byte
	FileSend      *codec.StateData
}

// HasData reports whether any transport has a payload.
func (e *SendOutputEvent) HasData() bool {
	if e == nil {
		return false
	}
	return e.SerialSend != nil || e.WebsocketSend != nil || e.FileSend != nil
}

// FrontendConnectionEvent tracks frontend liveness.
type FrontendConnectionEvent struct {
	LastConnectionTime  time.Time
	IsFrontendConnected bool
}

// HasData reports whether the frontend was ever seen.
func (e *FrontendConnectionEvent) HasData() bool {
	if e == nil {
		return false
	}
	return !e.LastConnectionTime.IsZero() || e.IsFrontendConnected
}
