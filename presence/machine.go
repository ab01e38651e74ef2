package presence

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrmsu-wise/presence-tracker/activity"
	"github.com/jrmsu-wise/presence-tracker/model"
)

// Activity event tags, preserved verbatim from the kiosk's audit display.
const (
	eventLogin  = "LIBRARY LOGIN"
	eventLogout = "LIBRARY LOGOUT"
)

// Notifier is the notification side of the state machine. Notification
// failures never fail a login or logout.
type Notifier interface {
	Notify(
		recipient model.Recipient,
		kind model.Kind,
		variables map[string]string,
		details map[string]interface{},
		dedupKey string,
	) (*model.Notification, error)
}

// Machine enforces login and logout legality against the presence store and
// records the side effects of each transition: an activity entry and a staff
// notification. Side effects happen after the store's critical section ends,
// so nothing is published while the presence lock is held.
type Machine struct {
	store    *Store
	recorder activity.Recorder
	notifier Notifier
	source   string
	clock    func() time.Time
	newID    func() string
}

// NewMachine wires a session state machine. The clock and ID generator may be
// nil, in which case wall-clock time and `lib-` prefixed UUIDs are used.
func NewMachine(
	store *Store,
	recorder activity.Recorder,
	notifier Notifier,
	source string,
	clock func() time.Time,
	newID func() string,
) *Machine {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = func() string {
			return fmt.Sprintf("lib-%s", uuid.New().String())
		}
	}
	return &Machine{
		store:    store,
		recorder: recorder,
		notifier: notifier,
		source:   source,
		clock:    clock,
		newID:    newID,
	}
}

// Login opens a new session for the subject. If the subject already has an
// active session, that session is returned along with model.ErrAlreadyActive
// so the caller can show it. On success the new session carries the next odd
// parity value for the subject.
func (m *Machine) Login(
	subjectID string,
	subjectKind model.SubjectKind,
	displayName string,
	method model.LoginMethod,
) (model.Session, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return model.Session{}, errors.New("subject ID is required")
	}
	if method == "" {
		method = model.MethodManual
	}

	now := m.clock()
	session, err := m.store.Open(model.Session{
		ID:          m.newID(),
		SubjectID:   subjectID,
		SubjectKind: subjectKind,
		DisplayName: displayName,
		LoginAt:     now,
		Method:      method,
	})
	if err != nil {
		return session, err
	}

	if m.recorder != nil {
		m.recorder.Append(model.ActivityEntry{
			ActorID:   subjectID,
			ActorName: displayName,
			Event:     eventLogin,
			Details:   fmt.Sprintf("Method: %s, Action #%d (ODD)", method, session.Parity),
			Source:    m.source,
			Timestamp: now,
		})
	}
	if m.notifier != nil {
		// Fire and forget.
		_, _ = m.notifier.Notify(
			model.AllStaff,
			model.KindLogin,
			map[string]string{
				"userId":   subjectID,
				"fullName": displayName,
			},
			map[string]interface{}{
				"userId":      subjectID,
				"userType":    string(subjectKind),
				"action":      "login",
				"actionCount": session.Parity,
				"method":      string(method),
			},
			"",
		)
	}

	return session, nil
}

// Logout closes the subject's active session, assigning the matching even
// parity value. Returns model.ErrNoActiveSession if the subject is not
// inside the library; nothing is mutated in that case.
func (m *Machine) Logout(subjectID string) (model.Session, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return model.Session{}, errors.New("subject ID is required")
	}

	now := m.clock()
	session, err := m.store.Close(subjectID, now)
	if err != nil {
		return model.Session{}, err
	}

	if m.recorder != nil {
		m.recorder.Append(model.ActivityEntry{
			ActorID:   subjectID,
			ActorName: session.DisplayName,
			Event:     eventLogout,
			Details:   fmt.Sprintf("Session ended, Action #%d (EVEN)", session.Parity),
			Source:    m.source,
			Timestamp: now,
		})
	}
	if m.notifier != nil {
		_, _ = m.notifier.Notify(
			model.AllStaff,
			model.KindLogout,
			map[string]string{
				"userId":   subjectID,
				"fullName": session.DisplayName,
			},
			map[string]interface{}{
				"userId":      subjectID,
				"action":      "logout",
				"actionCount": session.Parity,
			},
			"",
		)
	}

	return session, nil
}

// ActiveSessionOf returns the subject's active session, or model.ErrNotFound
// if the subject is not currently inside the library.
func (m *Machine) ActiveSessionOf(subjectID string) (model.Session, error) {
	return m.store.Active(subjectID)
}
