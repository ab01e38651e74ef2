package model

import (
	"errors"
	"time"
)

// SubjectKind identifies the kind of person whose presence is tracked.
type SubjectKind string

// The subject kinds recognized by the presence tracker.
const (
	SubjectStudent SubjectKind = "STUDENT"
	SubjectStaff   SubjectKind = "STAFF"
)

// LoginMethod identifies how a subject signed in at the kiosk.
type LoginMethod string

// The supported login methods.
const (
	MethodManual LoginMethod = "MANUAL"
	MethodQR     LoginMethod = "QR"
)

// SessionStatus is the lifecycle state of a library session.
type SessionStatus string

// The session lifecycle states.
const (
	StatusActive SessionStatus = "ACTIVE"
	StatusClosed SessionStatus = "CLOSED"
)

// Recipient identifies who a notification is addressed to. It is either a
// subject ID or the distinguished AllStaff role.
type Recipient string

// AllStaff addresses a notification to every administrator.
const AllStaff Recipient = "ALL_STAFF"

// Kind is the event type of a notification.
type Kind string

// The notification kinds produced by this service.
const (
	KindLogin           Kind = "LOGIN"
	KindLogout          Kind = "LOGOUT"
	KindForgottenLogout Kind = "FORGOTTEN_LOGOUT"
	KindAdminResponse   Kind = "ADMIN_RESPONSE"
)

// Session represents a single library visit. Parity is odd for the login
// event and even once the matching logout has been recorded; across a
// subject's history the assigned values strictly increase.
type Session struct {
	ID               string
	SubjectID        string
	SubjectKind      SubjectKind
	DisplayName      string
	LoginAt          time.Time
	LogoutAt         *time.Time
	Method           LoginMethod
	Parity           int
	Status           SessionStatus
	FlaggedForgotten bool
}

// Notification represents a single notification to be recorded and fanned out
// to connected clients. All fields except Read and ActionConsumed are
// immutable once the notification has been created.
type Notification struct {
	ID             string
	Recipient      Recipient
	Kind           Kind
	Title          string
	Message        string
	Details        map[string]interface{}
	CreatedAt      time.Time
	Read           bool
	ActionRequired bool
	ActionPayload  map[string]interface{}
	ActionConsumed bool
}

// ActivityEntry is one row in the recent-activity feed.
type ActivityEntry struct {
	ActorID   string
	ActorName string
	Event     string
	Details   string
	Source    string
	Timestamp time.Time
}

// The error taxonomy for session state machine operations.
var (
	// ErrAlreadyActive indicates that the subject already has an active
	// session. The existing session is returned alongside this error.
	ErrAlreadyActive = errors.New("subject already has an active session")

	// ErrNoActiveSession indicates that a logout or lookup found no active
	// session for the subject.
	ErrNoActiveSession = errors.New("no active session for subject")

	// ErrNotFound indicates that a record could not be located.
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation indicates that the recorded parity sequence is
	// inconsistent with the session records. Operations refuse to proceed
	// rather than silently repairing state.
	ErrInvariantViolation = errors.New("session parity invariant violation")
)
