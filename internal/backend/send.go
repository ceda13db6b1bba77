package backend

import (
	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/protocol"
)

// SendFilter turns outbound events and announcements into per-party
// payloads.
type SendFilter struct {
	buffer protocol.Channel[SendEvent]
}

// NewSendFilter creates an empty SendFilter.
func NewSendFilter() *SendFilter {
	return &SendFilter{}
}

// Input buffers an event. Events without data are ignored; announcements
// always have data.
func (f *SendFilter) Input(event SendEvent) {
	if event == nil || !event.HasData() {
		return
	}
	f.buffer.Push(event)
}

// Output returns the next per-party payload, or nil.
func (f *SendFilter) Output() *OutputEvent {
	event, ok := f.buffer.Pop()
	if !ok {
		return nil
	}
	switch e := event.(type) {
	case *OutputEvent:
		return e
	case *Announcement:
		var data []byte
		if e != nil {
			data = e.Data
		}
		msg := &message.Announcement{Announcement: data}
		return &OutputEvent{MCU: msg, Frontend: msg, File: msg}
	default:
		return nil
	}
}
