// Package notifications builds, deduplicates, and stores notification records
// and hands newly created records to the fan-out bus.
package notifications

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jrmsu-wise/presence-tracker/bus"
	"github.com/jrmsu-wise/presence-tracker/model"
)

// Engine creates notification records. Every record gets a message rendered
// from a randomly selected template for its kind, an `NT-` prefixed ID, a
// per-recipient slot in the store, and a best-effort publish on the bus.
type Engine struct {
	ledger *Ledger
	store  Store
	bus    *bus.Bus
	clock  func() time.Time
	intn   func(n int) int
}

// NewEngine wires a notification engine. The clock and randomness source may
// be nil, in which case wall-clock time and math/rand are used. Tests inject
// both for deterministic template selection and IDs.
func NewEngine(store Store, b *bus.Bus, clock func() time.Time, intn func(n int) int) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if intn == nil {
		intn = rand.Intn
	}
	return &Engine{
		ledger: NewLedger(),
		store:  store,
		bus:    b,
		clock:  clock,
		intn:   intn,
	}
}

// Notify creates a notification for the recipient. If dedupKey is non-empty
// and the (recipient, kind, dedupKey) triple has already been recorded, the
// call is a silent no-op returning (nil, nil): suppression is a success, not
// an error. Bus delivery is best-effort and never surfaces as an error.
func (e *Engine) Notify(
	recipient model.Recipient,
	kind model.Kind,
	variables map[string]string,
	details map[string]interface{},
	dedupKey string,
) (*model.Notification, error) {
	return e.notify(recipient, kind, variables, details, dedupKey, false, nil)
}

// NotifyAction creates an action-required notification carrying a payload for
// the recipient to act on, with the same deduplication semantics as Notify.
func (e *Engine) NotifyAction(
	recipient model.Recipient,
	kind model.Kind,
	variables map[string]string,
	details map[string]interface{},
	dedupKey string,
	actionPayload map[string]interface{},
) (*model.Notification, error) {
	return e.notify(recipient, kind, variables, details, dedupKey, true, actionPayload)
}

func (e *Engine) notify(
	recipient model.Recipient,
	kind model.Kind,
	variables map[string]string,
	details map[string]interface{},
	dedupKey string,
	actionRequired bool,
	actionPayload map[string]interface{},
) (*model.Notification, error) {
	if dedupKey != "" && !e.ledger.Insert(recipient, kind, dedupKey) {
		return nil, nil
	}

	now := e.clock()
	notification := &model.Notification{
		ID:             e.newID(now),
		Recipient:      recipient,
		Kind:           kind,
		Title:          titleFor(string(kind)),
		Message:        e.renderMessage(recipient, kind, variables),
		Details:        details,
		CreatedAt:      now,
		ActionRequired: actionRequired,
		ActionPayload:  actionPayload,
	}

	if err := e.store.Save(notification); err != nil {
		// Roll the suppression entry back so the event can be retried.
		if dedupKey != "" {
			e.ledger.Remove(recipient, kind, dedupKey)
		}
		return nil, err
	}

	e.bus.Publish(string(recipient), *notification)
	return notification, nil
}

// newID generates a notification ID in the kiosk's `NT-<millis>-<digits>`
// shape: ordered by creation time with a random suffix to break ties.
func (e *Engine) newID(now time.Time) string {
	millis := now.UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("NT-%d-%04d", millis, 1000+e.intn(9000))
}

// renderMessage picks one of the registered templates for the event and
// substitutes the variables into it. With no registered template the
// variables are echoed alongside the kind so the notification still reads.
func (e *Engine) renderMessage(
	recipient model.Recipient,
	kind model.Kind,
	variables map[string]string,
) string {
	templates := templatesFor(templateKey(recipient, kind, variables))
	if templates == nil {
		return fmt.Sprintf("Event: %s %v", kind, variables)
	}
	return Render(templates[e.intn(len(templates))], variables)
}

// templateKey selects the template set for a notification. Forgotten-logout
// events read differently for staff than for the subject being reminded, and
// declined admin responses have their own phrasings.
func templateKey(recipient model.Recipient, kind model.Kind, variables map[string]string) string {
	switch {
	case kind == model.KindForgottenLogout && recipient == model.AllStaff:
		return "FORGOTTEN_LOGOUT_STAFF"
	case kind == model.KindAdminResponse && variables["decision"] == "declined":
		return "ADMIN_RESPONSE_DECLINED"
	default:
		return string(kind)
	}
}

// ListNotifications returns one page of a recipient's notifications ordered
// newest first, along with the total and unread counts. Pages are 1-based.
func (e *Engine) ListNotifications(
	recipient model.Recipient,
	unreadOnly bool,
	page, limit int,
) ([]model.Notification, int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	return e.store.List(recipient, unreadOnly, (page-1)*limit, limit)
}

// MarkRead marks the identified notifications as read. Idempotent.
func (e *Engine) MarkRead(ids []string) error {
	return e.store.MarkRead(ids)
}

// MarkAllRead marks all of a recipient's notifications as read. Idempotent.
func (e *Engine) MarkAllRead(recipient model.Recipient) error {
	return e.store.MarkAllRead(recipient)
}

// ConsumeAction marks an action-required notification's payload as consumed.
func (e *Engine) ConsumeAction(id string) (model.Notification, error) {
	return e.store.ConsumeAction(id)
}

// ResetDedup removes a suppression triple so the same logical event can
// notify again, e.g. after a reset-code flow completes.
func (e *Engine) ResetDedup(recipient model.Recipient, kind model.Kind, dedupKey string) {
	e.ledger.Remove(recipient, kind, dedupKey)
}
