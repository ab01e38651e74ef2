package notifications

import (
	"sync"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// Store is the persistence boundary for notification records. The in-memory
// implementation below is the reference store; db.NotificationStore provides
// a durable Postgres-backed implementation behind the same interface.
type Store interface {
	// Save persists a new notification record.
	Save(notification *model.Notification) error

	// List returns one page of a recipient's notifications ordered newest
	// first, along with the total and unread counts for the recipient.
	List(recipient model.Recipient, unreadOnly bool, offset, limit int) ([]model.Notification, int, int, error)

	// MarkRead marks the identified notifications as read. Unknown IDs and
	// already-read notifications are skipped silently.
	MarkRead(ids []string) error

	// MarkAllRead marks all of a recipient's notifications as read.
	MarkAllRead(recipient model.Recipient) error

	// ConsumeAction marks an action-required notification's payload as
	// consumed and returns the updated record. Returns model.ErrNotFound
	// for unknown IDs.
	ConsumeAction(id string) (model.Notification, error)
}

// MemoryStore is the in-memory notification store. Records are kept
// newest-first per recipient.
type MemoryStore struct {
	mu          sync.Mutex
	byRecipient map[model.Recipient][]*model.Notification
	byID        map[string]*model.Notification
}

// NewMemoryStore returns an empty in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byRecipient: make(map[model.Recipient][]*model.Notification),
		byID:        make(map[string]*model.Notification),
	}
}

// Save persists a new notification record.
func (s *MemoryStore) Save(notification *model.Notification) error {
	stored := *notification

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byRecipient[stored.Recipient] = append(
		[]*model.Notification{&stored},
		s.byRecipient[stored.Recipient]...,
	)
	s.byID[stored.ID] = &stored
	return nil
}

// List returns one page of a recipient's notifications ordered newest first,
// along with the total and unread counts.
func (s *MemoryStore) List(
	recipient model.Recipient,
	unreadOnly bool,
	offset, limit int,
) ([]model.Notification, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matching []*model.Notification
	var unread int
	for _, n := range s.byRecipient[recipient] {
		if !n.Read {
			unread++
		}
		if unreadOnly && n.Read {
			continue
		}
		matching = append(matching, n)
	}
	total := len(s.byRecipient[recipient])

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matching) {
		return nil, total, unread, nil
	}
	end := len(matching)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]model.Notification, 0, end-offset)
	for _, n := range matching[offset:end] {
		page = append(page, *n)
	}
	return page, total, unread, nil
}

// MarkRead marks the identified notifications as read. Marking an
// already-read notification is a no-op.
func (s *MemoryStore) MarkRead(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if n, ok := s.byID[id]; ok {
			n.Read = true
		}
	}
	return nil
}

// MarkAllRead marks all of a recipient's notifications as read.
func (s *MemoryStore) MarkAllRead(recipient model.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byRecipient[recipient] {
		n.Read = true
	}
	return nil
}

// ConsumeAction marks an action-required notification's payload as consumed.
func (s *MemoryStore) ConsumeAction(id string) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return model.Notification{}, model.ErrNotFound
	}
	n.ActionConsumed = true
	return *n, nil
}
