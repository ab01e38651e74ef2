// Package activity maintains the recent-activity feed: a bounded, append-only,
// time-ordered record of domain events. When the capacity is exceeded the
// oldest entries are silently dropped.
package activity

import (
	"sync"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// DefaultCapacity is the number of entries retained when no explicit capacity
// is configured.
const DefaultCapacity = 1000

// Recorder is the interface used by components that append activity entries.
// Appending never fails; durable implementations handle their own errors.
type Recorder interface {
	Append(entry model.ActivityEntry)
}

// Log is an in-memory activity feed backed by a fixed-size ring buffer.
type Log struct {
	mu      sync.Mutex
	entries []model.ActivityEntry
	start   int
	count   int
}

// NewLog returns an activity log that retains up to capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{entries: make([]model.ActivityEntry, capacity)}
}

// Append records an entry, evicting the oldest entry once the capacity has
// been exceeded.
func (l *Log) Append(entry model.ActivityEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := (l.start + l.count) % len(l.entries)
	l.entries[pos] = entry
	if l.count < len(l.entries) {
		l.count++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
}

// Query returns up to limit entries ordered newest-first. If subjectID is
// non-empty, only entries for that actor are returned. A non-positive limit
// returns all retained matching entries.
func (l *Log) Query(subjectID string, limit int) []model.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []model.ActivityEntry
	for i := l.count - 1; i >= 0; i-- {
		entry := l.entries[(l.start+i)%len(l.entries)]
		if subjectID != "" && entry.ActorID != subjectID {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
