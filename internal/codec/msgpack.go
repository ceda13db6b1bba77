package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack returns the codec used on the frontend websocket link. Struct
// fields are keyed by their json tags so the frontend sees the same field
// names in every encoding.
func Msgpack() Codec {
	return &tagged{name: "msgpack", marshal: msgpackMarshal, unmarshal: msgpackUnmarshal}
}

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
