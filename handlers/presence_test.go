package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// MockSessionManager provides mock implementations of the presence operations
// that handlers call, recording the arguments for later inspection.
type MockSessionManager struct {
	LoginCalls  []model.Session
	LogoutCalls []string
	LoginErr    error
	LogoutErr   error
}

// Login records a copy of the login request.
func (m *MockSessionManager) Login(
	subjectID string,
	subjectKind model.SubjectKind,
	displayName string,
	method model.LoginMethod,
) (model.Session, error) {
	session := model.Session{
		ID:          "lib-fake",
		SubjectID:   subjectID,
		SubjectKind: subjectKind,
		DisplayName: displayName,
		Method:      method,
		Parity:      1,
		Status:      model.StatusActive,
	}
	m.LoginCalls = append(m.LoginCalls, session)
	return session, m.LoginErr
}

// Logout records the subject ID that was logged out.
func (m *MockSessionManager) Logout(subjectID string) (model.Session, error) {
	m.LogoutCalls = append(m.LogoutCalls, subjectID)
	return model.Session{ID: "lib-fake", SubjectID: subjectID, Parity: 2, Status: model.StatusClosed}, m.LogoutErr
}

// MockSweepRunner records the sweep requests it receives.
type MockSweepRunner struct {
	Nows       []time.Time
	Thresholds []time.Duration
}

// RunSweep records the sweep parameters and flags nothing.
func (m *MockSweepRunner) RunSweep(ctx context.Context, now time.Time, threshold time.Duration) []model.Session {
	m.Nows = append(m.Nows, now)
	m.Thresholds = append(m.Thresholds, threshold)
	return nil
}

// presenceDelivery builds an AMQP delivery carrying a presence request body.
func presenceDelivery(t *testing.T, request interface{}) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("unable to marshal the request body: %s", err)
	}
	return amqp.Delivery{Body: body}
}

func TestLoginHandler(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogin(sessions)

	delivery := presenceDelivery(t, &PresenceRequest{
		UserID:   "S-1",
		UserType: "student",
		FullName: "Jane Doe",
		Method:   "qr",
	})
	err := handler.HandleMessage("login", delivery)

	assert.NoError(err, "the login should succeed")
	if len(sessions.LoginCalls) != 1 {
		t.Fatalf("expected 1 login call, got %d", len(sessions.LoginCalls))
	}
	call := sessions.LoginCalls[0]
	assert.Equal("S-1", call.SubjectID, "incorrect subject ID")
	assert.Equal(model.SubjectStudent, call.SubjectKind, "the subject kind should be normalized to upper case")
	assert.Equal("Jane Doe", call.DisplayName, "incorrect display name")
	assert.Equal(model.MethodQR, call.Method, "the login method should be normalized to upper case")
}

func TestLoginHandlerUnparseableBody(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogin(sessions)

	err := handler.HandleMessage("login", amqp.Delivery{Body: []byte("not json")})

	assert.Error(err, "an unparseable body should produce an error")
	assert.IsType(UnrecoverableError{}, err, "an unparseable body is not worth redelivering")
	assert.Empty(sessions.LoginCalls, "no login should be attempted")
}

func TestLoginHandlerMissingUserID(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogin(sessions)

	err := handler.HandleMessage("login", presenceDelivery(t, &PresenceRequest{UserType: "student"}))

	assert.IsType(UnrecoverableError{}, err, "a request without a user ID is not worth redelivering")
	assert.Empty(sessions.LoginCalls, "no login should be attempted")
}

func TestLoginHandlerMissingUserType(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogin(sessions)

	err := handler.HandleMessage("login", presenceDelivery(t, &PresenceRequest{UserID: "S-1"}))

	assert.IsType(UnrecoverableError{}, err, "a request without a user type is not worth redelivering")
	assert.Empty(sessions.LoginCalls, "no login should be attempted")
}

func TestLoginHandlerInvalidTimestamp(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogin(sessions)

	delivery := presenceDelivery(t, &PresenceRequest{
		UserID:    "S-1",
		UserType:  "student",
		Timestamp: "yesterday-ish",
	})
	err := handler.HandleMessage("login", delivery)

	assert.IsType(UnrecoverableError{}, err, "a garbled timestamp is not worth redelivering")
	assert.Empty(sessions.LoginCalls, "no login should be attempted")
}

func TestLoginHandlerDuplicateLogin(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{LoginErr: model.ErrAlreadyActive}
	handler := NewLogin(sessions)

	delivery := presenceDelivery(t, &PresenceRequest{UserID: "S-1", UserType: "student"})
	err := handler.HandleMessage("login", delivery)

	assert.NoError(err, "a duplicate login is a business rejection, not a delivery failure")
}

func TestLoginHandlerInvariantViolation(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{LoginErr: model.ErrInvariantViolation}
	handler := NewLogin(sessions)

	delivery := presenceDelivery(t, &PresenceRequest{UserID: "S-1", UserType: "student"})
	err := handler.HandleMessage("login", delivery)

	assert.IsType(UnrecoverableError{}, err, "a corrupted session history can't be fixed by redelivery")
}

func TestLogoutHandler(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{}
	handler := NewLogout(sessions)

	err := handler.HandleMessage("logout", presenceDelivery(t, &PresenceRequest{UserID: "S-1"}))

	assert.NoError(err, "the logout should succeed")
	assert.Equal([]string{"S-1"}, sessions.LogoutCalls, "incorrect logout calls")
}

func TestLogoutHandlerNoActiveSession(t *testing.T) {
	assert := assert.New(t)
	sessions := &MockSessionManager{LogoutErr: model.ErrNoActiveSession}
	handler := NewLogout(sessions)

	err := handler.HandleMessage("logout", presenceDelivery(t, &PresenceRequest{UserID: "S-1"}))

	assert.NoError(err, "a logout without an active session is a business rejection")
}

func TestSweepHandler(t *testing.T) {
	assert := assert.New(t)
	sweeps := &MockSweepRunner{}
	handler := NewSweep(sweeps)

	delivery := presenceDelivery(t, &SweepRequest{Timestamp: "1594336370706", ThresholdHours: 8})
	err := handler.HandleMessage("sweep", delivery)

	assert.NoError(err, "the sweep should succeed")
	if len(sweeps.Nows) != 1 {
		t.Fatalf("expected 1 sweep call, got %d", len(sweeps.Nows))
	}
	assert.Equal(int64(1594336370706), sweeps.Nows[0].UnixNano()/int64(time.Millisecond), "incorrect sweep time")
	assert.Equal(8*time.Hour, sweeps.Thresholds[0], "incorrect sweep threshold")
}

func TestSweepHandlerDefaultsToNow(t *testing.T) {
	assert := assert.New(t)
	sweeps := &MockSweepRunner{}
	handler := NewSweep(sweeps)

	before := time.Now()
	err := handler.HandleMessage("sweep", presenceDelivery(t, &SweepRequest{}))

	assert.NoError(err, "the sweep should succeed")
	if len(sweeps.Nows) != 1 {
		t.Fatalf("expected 1 sweep call, got %d", len(sweeps.Nows))
	}
	assert.False(sweeps.Nows[0].Before(before), "an omitted timestamp should default to the current time")
	assert.Equal(time.Duration(0), sweeps.Thresholds[0], "an omitted threshold should be left to the sweeper default")
}

func TestInitMessageHandlers(t *testing.T) {
	assert := assert.New(t)

	handlerFor := InitMessageHandlers(&MockSessionManager{}, &MockSweepRunner{})

	for _, updateType := range []string{"login", "logout", "sweep"} {
		assert.Contains(handlerFor, updateType, "missing handler for update type")
	}
}
