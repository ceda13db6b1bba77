package codec

import (
	"encoding/json"
	"fmt"

	"github.com/pez-globo/ventserver/internal/message"
)

// StateData is one record of the file party: a message body tagged with
// its kind name.
type StateData struct {
	Data      []byte
	StateType string
}

// EncodeState serializes msg into a file record.
func EncodeState(msg message.Message) (*StateData, error) {
	if msg == nil {
		return nil, &message.DataError{Code: message.ErrCodeEncode, Message: "state: nil message"}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, &message.DataError{
			Code:    message.ErrCodeEncode,
			Kind:    msg.Kind(),
			Message: "state encode failed",
			Err:     err,
		}
	}
	return &StateData{Data: data, StateType: msg.Kind().String()}, nil
}

// DecodeState resolves the record's kind name and decodes its body.
func DecodeState(record *StateData) (message.Message, error) {
	if record == nil {
		return nil, &message.DataError{Code: message.ErrCodeDecode, Message: "state: nil record"}
	}
	kind, err := message.ParseKind(record.StateType)
	if err != nil {
		return nil, fmt.Errorf("state decode: %w", err)
	}
	msg, err := message.New(kind)
	if err != nil {
		return nil, fmt.Errorf("state decode: %w", err)
	}
	if err := json.Unmarshal(record.Data, msg); err != nil {
		return nil, &message.DataError{
			Code:    message.ErrCodeDecode,
			Kind:    kind,
			Message: "state decode failed",
			Err:     err,
		}
	}
	return msg, nil
}
