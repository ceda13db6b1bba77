package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pez-globo/ventserver/internal/backend"
	"github.com/pez-globo/ventserver/internal/codec"
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/rotary"
)

func TestReceiveEvent_HasData(t *testing.T) {
	var nilEvent *ReceiveEvent
	assert.False(t, nilEvent.HasData())
	assert.False(t, (&ReceiveEvent{}).HasData())
	assert.True(t, (&ReceiveEvent{Time: time.UnixMilli(1)}).HasData())
	assert.True(t, (&ReceiveEvent{SerialReceive: []byte{}}).HasData())
	assert.True(t, (&ReceiveEvent{WebsocketReceive: []byte{1}}).HasData())
	assert.True(t, (&ReceiveEvent{RotaryEncoderReceive: &rotary.Sample{}}).HasData())
	assert.True(t, (&ReceiveEvent{FileReceive: &codec.StateData{}}).HasData())
}

func TestBuilders_PopulateOnePayload(t *testing.T) {
	now := time.UnixMilli(42)
	data := []byte{0xde, 0xad}

	serial := MakeSerialReceive(data, now)
	assert.Equal(t, &ReceiveEvent{Time: now, SerialReceive: data}, serial)

	ws := MakeWebsocketReceive(data, now)
	assert.Equal(t, &ReceiveEvent{Time: now, WebsocketReceive: data}, ws)

	knob := MakeRotaryEncoderReceive(rotary.Sample{Count: 3, Pressed: true}, now)
	assert.Equal(t, now, knob.Time)
	assert.Equal(t, &rotary.Sample{Count: 3, Pressed: true}, knob.RotaryEncoderReceive)
	assert.Nil(t, knob.SerialReceive)
	assert.Nil(t, knob.WebsocketReceive)
	assert.Nil(t, knob.FileReceive)

	record := &codec.StateData{Data: []byte(`{}`), StateType: "ParametersRequest"}
	file := MakeFileReceive(record, now)
	assert.Same(t, record, file.FileReceive)
}

func TestReceiveOutputEvent_HasData(t *testing.T) {
	var nilEvent *ReceiveOutputEvent
	assert.False(t, nilEvent.HasData())
	assert.False(t, (&ReceiveOutputEvent{}).HasData())
	assert.True(t, (&ReceiveOutputEvent{FrontendDelayed: true}).HasData())
	assert.True(t, (&ReceiveOutputEvent{
		ServerSend: &backend.OutputEvent{MCU: &message.Ping{}},
	}).HasData())
}

func TestSendOutputEvent_HasData(t *testing.T) {
	assert.False(t, (&SendOutputEvent{}).HasData())
	assert.True(t, (&SendOutputEvent{SerialSend: []byte{}}).HasData())
	assert.True(t, (&SendOutputEvent{WebsocketSend: []byte{0}}).HasData())
	assert.True(t, (&SendOutputEvent{FileSend: &codec.StateData{}}).HasData())
}

func TestFrontendConnectionEvent_HasData(t *testing.T) {
	e := &FrontendConnectionEvent{}
	assert.False(t, e.HasData())

	e.LastConnectionTime = time.UnixMilli(5)
	e.IsFrontendConnected = false
	assert.True(t, e.HasData())
}
