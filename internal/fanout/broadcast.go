package fanout

import "sync"

// broadcaster wakes every waiter once when notify is called, the
// condition-variable shape a per-session replay loop uses to learn a
// new signal landed for its master without polling the log.
type broadcaster struct {
	mu sync.Mutex
	ch chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan struct{})}
}

func (b *broadcaster) wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

func (b *broadcaster) notify() {
	b.mu.Lock()
	close(b.ch)
	b.ch = make(chan struct{})
	b.mu.Unlock()
}

// broadcasterRegistry hands out one broadcaster per master, created on
// first use.
type broadcasterRegistry struct {
	mu   sync.Mutex
	byID map[string]*broadcaster
}

func newBroadcasterRegistry() *broadcasterRegistry {
	return &broadcasterRegistry{byID: make(map[string]*broadcaster)}
}

func (r *broadcasterRegistry) get(masterID string) *broadcaster {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[masterID]
	if !ok {
		b = newBroadcaster()
		r.byID[masterID] = b
	}
	return b
}

func (r *broadcasterRegistry) notify(masterID string) {
	r.get(masterID).notify()
}
