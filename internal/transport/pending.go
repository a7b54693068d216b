package transport

import (
	"encoding/json"
	"sync"
)

// result completes a pending request.
type result struct {
	payload json.RawMessage
	err     error
}

// pendingTable maps correlation ids to the requests waiting for them. An
// entry is removed before it is completed, so each request completes at most
// once.
type pendingTable struct {
	mu      sync.Mutex
	entries map[CorrelationID]chan result
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[CorrelationID]chan result)}
}

// register adds id and returns the channel its result is delivered on.
func (p *pendingTable) register(id CorrelationID) <-chan result {
	ch := make(chan result, 1)
	p.mu.Lock()
	p.entries[id] = ch
	p.mu.Unlock()
	return ch
}

// complete removes id and delivers res. It reports whether id was pending.
func (p *pendingTable) complete(id CorrelationID, res result) bool {
	p.mu.Lock()
	ch, ok := p.entries[id]
	delete(p.entries, id)
	p.mu.Unlock()
	if ok {
		ch <- res
	}
	return ok
}

// remove drops id without completing it.
func (p *pendingTable) remove(id CorrelationID) {
	p.mu.Lock()
	delete(p.entries, id)
	p.mu.Unlock()
}

// failAll completes every pending entry with err and empties the table.
func (p *pendingTable) failAll(err error) int {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[CorrelationID]chan result)
	p.mu.Unlock()

	for _, ch := range entries {
		ch <- result{err: err}
	}
	return len(entries)
}

func (p *pendingTable) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
