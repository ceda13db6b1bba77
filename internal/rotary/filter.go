package rotary

import (
	"time"

	"github.com/pez-globo/ventserver/internal/message"
	"github.com/pez-globo/ventserver/internal/protocol"
)

// ReceiveEvent is one encoder sample observed at Time.
type ReceiveEvent struct {
	Time   time.Time
	Sample Sample
}

// ReceiveFilter converts samples into RotaryEncoder state, stamping step and
// button changes with the event time in Unix milliseconds.
type ReceiveFilter struct {
	buffer protocol.Channel[*ReceiveEvent]

	step           int32
	lastStepChange uint64
	pressed        bool
	lastButtonDown uint64
	lastButtonUp   uint64
}

// NewReceiveFilter creates a filter at step 0 with the button released.
func NewReceiveFilter() *ReceiveFilter {
	return &ReceiveFilter{}
}

// Input buffers an event.
func (f *ReceiveFilter) Input(event *ReceiveEvent) {
	if event == nil {
		return
	}
	f.buffer.Push(event)
}

// Output applies the next buffered sample and returns the resulting state.
func (f *ReceiveFilter) Output() *message.RotaryEncoder {
	event, ok := f.buffer.Pop()
	if !ok {
		return nil
	}
	now := uint64(0)
	if !event.Time.IsZero() {
		now = uint64(event.Time.UnixMilli())
	}
	if step := int32(event.Sample.Count); step != f.step {
		f.step = step
		f.lastStepChange = now
	}
	if event.Sample.Pressed != f.pressed {
		if event.Sample.Pressed {
			f.lastButtonDown = now
		} else {
			f.lastButtonUp = now
		}
		f.pressed = event.Sample.Pressed
	}
	return &message.RotaryEncoder{
		Step:           f.step,
		LastStepChange: f.lastStepChange,
		ButtonPressed:  f.pressed,
		LastButtonDown: f.lastButtonDown,
		LastButtonUp:   f.lastButtonUp,
	}
}
