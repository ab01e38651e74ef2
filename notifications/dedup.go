package notifications

import (
	"sync"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// dedupEntry is one suppression triple. Inserting an existing triple signals
// that the logical event has already been notified.
type dedupEntry struct {
	recipient model.Recipient
	kind      model.Kind
	key       string
}

// Ledger is the deduplication ledger: a set of (recipient, kind, key)
// triples. Entries are only ever removed by an explicit reset; time alone
// never expires them.
type Ledger struct {
	mu      sync.Mutex
	entries map[dedupEntry]struct{}
}

// NewLedger returns an empty deduplication ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[dedupEntry]struct{})}
}

// Insert atomically checks for and records a suppression triple. It reports
// whether the triple was newly inserted; false means the event has already
// been notified.
func (l *Ledger) Insert(recipient model.Recipient, kind model.Kind, key string) bool {
	entry := dedupEntry{recipient: recipient, kind: kind, key: key}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[entry]; ok {
		return false
	}
	l.entries[entry] = struct{}{}
	return true
}

// Remove deletes a suppression triple so the event can be notified again.
// Used both for explicit external resets (e.g. after a reset-code flow
// completes) and to roll back an insert whose notification failed to persist.
func (l *Ledger) Remove(recipient model.Recipient, kind model.Kind, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, dedupEntry{recipient: recipient, kind: kind, key: key})
}
