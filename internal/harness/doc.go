// Package harness replays YAML scenarios through the server protocol.
//
// A scenario feeds timed transport events into a fresh server.Protocol and
// records every payload the protocol sends, decoded back into messages, as
// a trace. Assertions check the trace and the final party states; golden
// files pin the whole trace.
//
// # Scenario Format
//
//	name: startup_sync
//	description: "Seeded request reaches the MCU"
//	config:
//	  liveness_timeout: 2s
//	  ping_interval: 500ms
//	seed:
//	  - kind: ParametersRequest
//	    value: { mode: 0, fio2: 60 }
//	steps:
//	  - at: 100ms
//	    serial: { kind: Parameters, value: { fio2: 60 } }
//	    expect:
//	      file: [Parameters]
//	  - at: 200ms
//	    websocket: { kind: Ping, value: { id: 1 } }
//	assertions:
//	  - type: trace_count
//	    transport: websocket
//	    kind: Ping
//	    count: 1
//
// A step carries at most one payload per transport: serial, websocket,
// websocket_raw (hex, for undecodable bytes), rotary and file. announce
// broadcasts an announcement after the step's receive event. A step with
// no payload only advances time. Step times are offsets from a fixed epoch
// and must not decrease.
//
// # Assertion Types
//
//   - trace_contains: a payload of kind was sent on transport with matching fields
//   - trace_order: kinds were sent on transport in this order, not necessarily adjacent
//   - trace_count: kind was sent on transport exactly count times
//   - final_state: a party holds kind with matching fields, or holds none if absent
//   - stored_state: the persisted file record of kind has matching fields
//
// Field matching is a subset match on the JSON form of the message.
package harness
