// Package codec converts messages to and from transport payloads.
//
// Serial and websocket payloads are type-tagged frames: one byte holding the
// message.Kind type code followed by the encoded body. The MCU link encodes
// bodies as CBOR, the frontend link as MessagePack. File records carry the
// kind by name in StateData and encode the body as JSON so the persisted
// state stays readable.
//
// Codecs only encode and decode. Schema validation belongs to the state
// synchronizers that consume the decoded values.
package codec
