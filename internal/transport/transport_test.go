package transport

import (
	"sync"

	"github.com/pez-globo/ventserver/internal/server"
)

type recorder struct {
	mu     sync.Mutex
	events []*server.ReceiveEvent
	full   bool
}

func (r *recorder) Submit(event *server.ReceiveEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.events = append(r.events, event)
	return true
}

func (r *recorder) Events() []*server.ReceiveEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*server.ReceiveEvent(nil), r.events...)
}
