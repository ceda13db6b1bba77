package codec

import (
	"fmt"

	"github.com/pez-globo/ventserver/internal/message"
)

// Codec encodes messages into type-tagged frames and back.
type Codec interface {
	Encode(msg message.Message) ([]byte, error)
	Decode(frame []byte) (message.Message, error)
}

type marshalFunc func(v any) ([]byte, error)

type unmarshalFunc func(data []byte, v any) error

// tagged implements Codec over a body serialization.
type tagged struct {
	name      string
	marshal   marshalFunc
	unmarshal unmarshalFunc
}

// Encode prefixes the encoded body with the kind's type code.
func (c *tagged) Encode(msg message.Message) ([]byte, error) {
	if msg == nil {
		return nil, &message.DataError{Code: message.ErrCodeEncode, Message: c.name + ": nil message"}
	}
	kind := msg.Kind()
	body, err := c.marshal(msg)
	if err != nil {
		return nil, &message.DataError{
			Code:    message.ErrCodeEncode,
			Kind:    kind,
			Message: c.name + " encode failed",
			Err:     err,
		}
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, byte(kind))
	return append(frame, body...), nil
}

// Decode reads the type code and decodes the body into a fresh message.
func (c *tagged) Decode(frame []byte) (message.Message, error) {
	if len(frame) == 0 {
		return nil, &message.DataError{Code: message.ErrCodeDecode, Message: c.name + ": empty frame"}
	}
	kind := message.Kind(frame[0])
	msg, err := message.New(kind)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.name, err)
	}
	if err := c.unmarshal(frame[1:], msg); err != nil {
		return nil, &message.DataError{
			Code:    message.ErrCodeDecode,
			Kind:    kind,
			Message: c.name + " decode failed",
			Err:     err,
		}
	}
	return msg, nil
}
