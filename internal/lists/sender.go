package lists

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pez-globo/ventserver/internal/message"
)

// SenderConfig configures a Sender.
type SenderConfig struct {
	// MaxLen bounds the number of retained events.
	MaxLen int

	// MaxSegmentLen bounds the number of events per segment.
	MaxSegmentLen int

	// RetryInterval is how long the Sender waits after its last segment
	// before resending unacknowledged events.
	RetryInterval time.Duration

	// SessionID identifies this producer instance. Empty generates one.
	SessionID string
}

// Sender is the producer half of log replication.
//
// Sender is not safe for concurrent use.
type Sender struct {
	maxLen        int
	maxSegmentLen int
	retryInterval time.Duration
	sessionID     string

	// events is a ring of count entries starting at head.
	events []message.LogEvent
	head   int
	count  int
	// floor is the id just past the last evicted event.
	floor uint32
	// tail is the id just past the newest event.
	tail uint32

	cursor uint32
	acked  uint32
	reset  bool

	seq      uint64
	now      time.Time
	lastSend time.Time
}

// NewSender validates cfg and creates an empty Sender.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.MaxLen <= 0 {
		return nil, errors.New("lists: max length must be positive")
	}
	if cfg.MaxSegmentLen <= 0 {
		return nil, errors.New("lists: max segment length must be positive")
	}
	if cfg.RetryInterval < 0 {
		return nil, errors.New("lists: retry interval must not be negative")
	}
	session := cfg.SessionID
	if session == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("lists: generate session id: %w", err)
		}
		session = id.String()
	}
	return &Sender{
		maxLen:        cfg.MaxLen,
		maxSegmentLen: cfg.MaxSegmentLen,
		retryInterval: cfg.RetryInterval,
		sessionID:     session,
		events:        make([]message.LogEvent, cfg.MaxLen),
	}, nil
}

// SessionID returns the producer session id carried by every segment.
func (s *Sender) SessionID() string {
	return s.sessionID
}

// Input appends event to the log, evicting the oldest event when the log is
// full. Events must arrive with strictly increasing ids; an event whose id
// is below the current tail is a duplicate and is ignored.
func (s *Sender) Input(event message.LogEvent) bool {
	if event.ID < s.tail {
		return false
	}
	if s.count == s.maxLen {
		s.floor = s.at(0).ID + 1
		s.head = (s.head + 1) % s.maxLen
		s.count--
	}
	s.events[(s.head+s.count)%s.maxLen] = event
	s.count++
	s.tail = event.ID + 1
	return true
}

// at returns the i-th retained event, oldest first.
func (s *Sender) at(i int) message.LogEvent {
	return s.events[(s.head+i)%s.maxLen]
}

// Append assigns the next id to event and appends it.
func (s *Sender) Append(event message.LogEvent) message.LogEvent {
	event.ID = s.tail
	s.Input(event)
	return event
}

// Acknowledge applies a consumer acknowledgment.
func (s *Sender) Acknowledge(ack *message.ExpectedLogEvent) {
	if ack == nil {
		return
	}
	switch {
	case ack.SessionID != "" && ack.SessionID != s.sessionID:
		s.Restart()
	case ack.ID > s.tail:
		s.Restart()
	case ack.ID < s.floor:
		s.Restart()
	case ack.ID > s.acked:
		s.acked = ack.ID
		if s.cursor < s.acked {
			s.cursor = s.acked
		}
	}
}

// Restart makes the next segment start from the oldest retained event with
// the reset marker set.
func (s *Sender) Restart() {
	s.reset = true
	s.cursor = s.floor
	s.acked = s.floor
}

// SetTime advances the Sender's view of event time.
func (s *Sender) SetTime(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
}

// Output returns the next segment, or nil when everything retained has been
// sent and no retry is due.
func (s *Sender) Output() *message.NextLogEvents {
	if s.indexOf(s.cursor) == s.count && !s.reset {
		if !s.retryDue() {
			return nil
		}
		s.cursor = s.acked
	}
	if s.cursor < s.floor {
		// The consumer's position was evicted.
		s.reset = true
		s.cursor = s.floor
	}
	start := s.indexOf(s.cursor)

	end := min(start+s.maxSegmentLen, s.count)
	elements := make([]message.LogEvent, 0, end-start)
	for i := start; i < end; i++ {
		elements = append(elements, s.at(i))
	}

	s.seq++
	segment := &message.NextLogEvents{
		Seq:          s.seq,
		SessionID:    s.sessionID,
		Reset:        s.reset,
		NextExpected: s.cursor,
		Total:        uint32(s.count),
		Remaining:    uint32(s.count - end),
		Elements:     elements,
	}
	if end > start {
		s.cursor = s.at(end-1).ID + 1
	}
	s.reset = false
	s.lastSend = s.now
	return segment
}

func (s *Sender) retryDue() bool {
	if s.indexOf(s.acked) == s.count {
		return false
	}
	return s.now.Sub(s.lastSend) >= s.retryInterval
}

// indexOf returns the index of the first retained event with id >= id.
func (s *Sender) indexOf(id uint32) int {
	return sort.Search(s.count, func(i int) bool {
		return s.at(i).ID >= id
	})
}

// Len returns the number of retained events.
func (s *Sender) Len() int {
	return s.count
}

// Events returns a copy of the retained log, oldest first.
func (s *Sender) Events() []message.LogEvent {
	out := make([]message.LogEvent, s.count)
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

// Unacknowledged returns the number of retained events the consumer has not
// acknowledged.
func (s *Sender) Unacknowledged() int {
	return s.count - s.indexOf(s.acked)
}
