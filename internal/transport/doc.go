// Package transport holds the I/O drivers around the protocol engine.
//
// Each driver runs its own read loop and pushes receive events into the
// engine through a Submitter; outbound frames come back through the
// engine's FrameWriter sinks. Drivers never touch protocol state.
//
//   - Serial: the MCU link, COBS-delimited frames with a CRC-32C header
//   - Websocket: the frontend, binary messages broadcast to every client
//   - RotaryReader: encoder line levels decoded into rotary samples
package transport

import "github.com/pez-globo/ventserver/internal/server"

// Submitter accepts receive events without blocking. It returns false when
// the event was dropped.
type Submitter interface {
	Submit(event *server.ReceiveEvent) bool
}
