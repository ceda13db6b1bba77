package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pez-globo/ventserver/internal/message"
)

func TestReceiveEvent_HasData(t *testing.T) {
	tests := []struct {
		name  string
		event *ReceiveEvent
		want  bool
	}{
		{"nil", nil, false},
		{"empty", &ReceiveEvent{}, false},
		{"time only", &ReceiveEvent{Time: time.UnixMilli(1)}, true},
		{"mcu", &ReceiveEvent{MCU: &message.Alarms{}}, true},
		{"frontend", &ReceiveEvent{Frontend: &message.Ping{}}, true},
		{"file", &ReceiveEvent{File: &message.ParametersRequest{}}, true},
		{"local", &ReceiveEvent{Local: &message.RotaryEncoder{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.HasData())
		})
	}
}

func TestOutputEvent_HasData(t *testing.T) {
	var nilEvent *OutputEvent
	assert.False(t, nilEvent.HasData())
	assert.False(t, (&OutputEvent{}).HasData())
	assert.True(t, (&OutputEvent{MCU: &message.ParametersRequest{}}).HasData())
	assert.True(t, (&OutputEvent{Frontend: &message.Ping{}}).HasData())
	assert.True(t, (&OutputEvent{File: &message.Parameters{}}).HasData())
}

func TestAnnouncement_AlwaysHasData(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte("x")} {
		assert.True(t, (&Announcement{Data: data}).HasData())
	}
}

func TestGetSend(t *testing.T) {
	assert.Nil(t, GetMCUSend(nil))
	assert.Nil(t, GetFrontendSend(nil))
	assert.Nil(t, GetFileSend(nil))

	mcu := &message.ParametersRequest{}
	frontend := &message.Ping{}
	file := &message.Parameters{}
	out := &OutputEvent{MCU: mcu, Frontend: frontend, File: file}

	assert.Same(t, mcu, GetMCUSend(out))
	assert.Same(t, frontend, GetFrontendSend(out))
	assert.Same(t, file, GetFileSend(out))
}

func TestParty_String(t *testing.T) {
	assert.Equal(t, "mcu", PartyMCU.String())
	assert.Equal(t, "frontend", PartyFrontend.String())
	assert.Equal(t, "file", PartyFile.String())
	assert.Equal(t, "local", PartyLocal.String())
	assert.Equal(t, "unknown", Party(9).String())
}
