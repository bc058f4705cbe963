package queue

import "sync"

// ledger counts consecutive send failures per notification.
type ledger struct {
	mu     sync.Mutex
	counts map[string]int
}

func newLedger() *ledger {
	return &ledger{counts: make(map[string]int)}
}

func (l *ledger) increment(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[id]++
	return l.counts[id]
}

func (l *ledger) clear(id string) {
	l.mu.Lock()
	delete(l.counts, id)
	l.mu.Unlock()
}

func (l *ledger) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counts[id]
}
