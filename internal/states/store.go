package states

import (
	"slices"

	"github.com/pez-globo/ventserver/internal/message"
)

type entry struct {
	value    message.Message
	revision uint64
}

// Store maps each message kind to its latest value.
//
// Every successful write is stamped with a revision from a counter shared by
// all kinds, so revisions also order writes across kinds.
type Store struct {
	entries map[message.Kind]entry
	clock   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[message.Kind]entry)}
}

// Get returns the current value for kind.
func (s *Store) Get(kind message.Kind) (message.Message, bool) {
	e, ok := s.entries[kind]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set overwrites the entry for msg's kind and returns its new revision.
func (s *Store) Set(msg message.Message) uint64 {
	s.clock++
	s.entries[msg.Kind()] = entry{value: msg, revision: s.clock}
	return s.clock
}

// Revision returns the revision of the entry for kind, or 0 if the kind was
// never observed.
func (s *Store) Revision(kind message.Kind) uint64 {
	return s.entries[kind].revision
}

// Len returns the number of observed kinds.
func (s *Store) Len() int {
	return len(s.entries)
}

// Kinds returns the observed kinds in type-code order.
func (s *Store) Kinds() []message.Kind {
	kinds := make([]message.Kind, 0, len(s.entries))
	for k := range s.entries {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
