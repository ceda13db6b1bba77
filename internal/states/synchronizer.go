package states

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/pez-globo/ventserver/internal/message"
)

// Validator checks a decoded message against its schema.
type Validator interface {
	Validate(msg message.Message) error
}

// Config describes one party's synchronizer.
type Config struct {
	// Party names the party in log records.
	Party string

	// Outbound lists the kinds emitted back to the party. Ties between
	// equally old changes are broken by this order.
	Outbound []message.Kind

	// KeepAlive maps outbound kinds that are re-emitted while unchanged to
	// their resend interval. A zero interval resends on every Output.
	KeepAlive map[message.Kind]time.Duration

	// Validator rejects malformed values on Input. Nil disables validation.
	Validator Validator

	// Logger receives recovered errors. Nil means slog.Default().
	Logger *slog.Logger
}

// Synchronizer is the state filter for one party.
//
// Synchronizer is not safe for concurrent use.
type Synchronizer struct {
	party     string
	store     *Store
	outbound  []message.Kind
	keepAlive map[message.Kind]time.Duration
	validator Validator
	logger    *slog.Logger

	sent     map[message.Kind]uint64
	lastSent map[message.Kind]time.Time
	now      time.Time
}

// NewSynchronizer creates a synchronizer with an empty store.
func NewSynchronizer(cfg Config) *Synchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keepAlive := make(map[message.Kind]time.Duration, len(cfg.KeepAlive))
	for k, d := range cfg.KeepAlive {
		keepAlive[k] = d
	}
	return &Synchronizer{
		party:     cfg.Party,
		store:     NewStore(),
		outbound:  append([]message.Kind(nil), cfg.Outbound...),
		keepAlive: keepAlive,
		validator: cfg.Validator,
		logger:    logger,
		sent:      make(map[message.Kind]uint64),
		lastSent:  make(map[message.Kind]time.Time),
	}
}

// Party returns the party name.
func (s *Synchronizer) Party() string {
	return s.party
}

// Input validates msg and overwrites the store entry for its kind.
//
// An invalid value is logged and dropped, leaving the entry unchanged. A
// value equal to the current entry does not count as a change.
func (s *Synchronizer) Input(msg message.Message) {
	if msg == nil || reflect.ValueOf(msg).IsNil() {
		return
	}
	kind := msg.Kind()
	if s.validator != nil {
		if err := s.validator.Validate(msg); err != nil {
			s.logger.Warn("dropped invalid state",
				"party", s.party,
				"kind", kind.String(),
				"error", err,
			)
			return
		}
	}
	if current, ok := s.store.Get(kind); ok && reflect.DeepEqual(current, msg) {
		return
	}
	s.store.Set(msg)
}

// SetTime advances the synchronizer's view of event time.
func (s *Synchronizer) SetTime(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
}

// Output returns the oldest unsent change among the outbound kinds, or a
// due keep-alive value. It returns nil when nothing is ready.
func (s *Synchronizer) Output() message.Message {
	if kind, ok := s.oldestPending(); ok {
		return s.emit(kind)
	}
	for _, kind := range s.outbound {
		interval, ok := s.keepAlive[kind]
		if !ok || s.store.Revision(kind) == 0 {
			continue
		}
		last, sent := s.lastSent[kind]
		if !sent || s.now.Sub(last) >= interval {
			return s.emit(kind)
		}
	}
	return nil
}

func (s *Synchronizer) oldestPending() (message.Kind, bool) {
	var (
		best    message.Kind
		bestRev uint64
	)
	for _, kind := range s.outbound {
		rev := s.store.Revision(kind)
		if rev == 0 || rev <= s.sent[kind] {
			continue
		}
		if bestRev == 0 || rev < bestRev {
			best, bestRev = kind, rev
		}
	}
	return best, bestRev != 0
}

func (s *Synchronizer) emit(kind message.Kind) message.Message {
	value, _ := s.store.Get(kind)
	s.sent[kind] = s.store.Revision(kind)
	s.lastSent[kind] = s.now
	return value
}

// Get returns the party's current value for kind.
func (s *Synchronizer) Get(kind message.Kind) (message.Message, bool) {
	return s.store.Get(kind)
}

// Revision returns the store revision for kind; 0 means never observed.
func (s *Synchronizer) Revision(kind message.Kind) uint64 {
	return s.store.Revision(kind)
}

// IsPending reports whether kind has a change not yet emitted.
func (s *Synchronizer) IsPending(kind message.Kind) bool {
	rev := s.store.Revision(kind)
	return rev != 0 && rev > s.sent[kind]
}

// Pending returns the number of outbound kinds with unsent changes.
func (s *Synchronizer) Pending() int {
	n := 0
	for _, kind := range s.outbound {
		if s.IsPending(kind) {
			n++
		}
	}
	return n
}

// MarkSent records the current value of kind as already held by the party,
// so it is not emitted back to where it came from.
func (s *Synchronizer) MarkSent(kind message.Kind) {
	if rev := s.store.Revision(kind); rev != 0 {
		s.sent[kind] = rev
		s.lastSent[kind] = s.now
	}
}

// Resend marks every stored outbound value as unsent, so a party that lost
// its state receives the full view again.
func (s *Synchronizer) Resend() {
	clear(s.sent)
	clear(s.lastSent)
}

// Kinds returns the kinds the party has observed.
func (s *Synchronizer) Kinds() []message.Kind {
	return s.store.Kinds()
}
