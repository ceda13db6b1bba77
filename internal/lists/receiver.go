package lists

import (
	"github.com/pez-globo/ventserver/internal/message"
)

// Receiver is the consumer half of log replication.
//
// Receiver is not safe for concurrent use.
type Receiver struct {
	sessionID string
	expected  uint32
	resets    int

	received []message.LogEvent
	ack      *message.ExpectedLogEvent
}

// NewReceiver creates a Receiver that expects event id 0 from any session.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// Input applies a segment. Elements below the expected id are duplicates and
// are skipped. A segment that starts beyond the expected id means an earlier
// segment was lost; it is discarded and the current position is acknowledged
// again so the producer goes back.
func (r *Receiver) Input(segment *message.NextLogEvents) {
	if segment == nil {
		return
	}
	if segment.Reset || segment.SessionID != r.sessionID {
		if r.sessionID != "" || segment.Reset {
			r.resets++
		}
		r.sessionID = segment.SessionID
		r.expected = segment.NextExpected
	} else if segment.NextExpected > r.expected {
		r.acknowledge()
		return
	}
	for _, e := range segment.Elements {
		if e.ID < r.expected {
			continue
		}
		r.received = append(r.received, e)
		r.expected = e.ID + 1
	}
	r.acknowledge()
}

func (r *Receiver) acknowledge() {
	r.ack = &message.ExpectedLogEvent{ID: r.expected, SessionID: r.sessionID}
}

// Output returns the acknowledgment for the segments applied since the last
// call, or nil if there were none.
func (r *Receiver) Output() *message.ExpectedLogEvent {
	ack := r.ack
	r.ack = nil
	return ack
}

// Drain returns the events applied since the last call, oldest first.
func (r *Receiver) Drain() []message.LogEvent {
	events := r.received
	r.received = nil
	return events
}

// Expected returns the next event id the Receiver expects.
func (r *Receiver) Expected() uint32 {
	return r.expected
}

// Resets returns how many times the producer forced a resynchronization.
func (r *Receiver) Resets() int {
	return r.resets
}
