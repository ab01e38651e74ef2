package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/jrmsu-wise/presence-tracker/common"
	"github.com/jrmsu-wise/presence-tracker/model"
)

// PresenceRequest represents a deserialized login or logout request from the
// kiosk bridge.
type PresenceRequest struct {
	UserID    string `json:"userId"`
	UserType  string `json:"userType"`
	FullName  string `json:"fullName"`
	Method    string `json:"method"`
	Timestamp string `json:"timestamp"`
}

// parsePresenceRequest parses and validates the body of a presence delivery.
func parsePresenceRequest(delivery amqp.Delivery) (*PresenceRequest, error) {
	var request PresenceRequest
	if err := json.Unmarshal(delivery.Body, &request); err != nil {
		return nil, NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}
	request.UserID = strings.TrimSpace(request.UserID)
	if request.UserID == "" {
		return nil, NewUnrecoverableError("user ID is required")
	}
	if _, err := common.ParseTimestamp(request.Timestamp); err != nil {
		return nil, NewUnrecoverableError("invalid timestamp: %s", err.Error())
	}
	return &request, nil
}

// Login is a message handler for kiosk login requests.
type Login struct {
	sessions SessionManager
}

// NewLogin returns a new login request handler.
func NewLogin(sessions SessionManager) *Login {
	return &Login{sessions: sessions}
}

// HandleMessage handles a single login delivery.
func (h *Login) HandleMessage(updateType string, delivery amqp.Delivery) error {
	request, err := parsePresenceRequest(delivery)
	if err != nil {
		return err
	}
	if strings.TrimSpace(request.UserType) == "" {
		return NewUnrecoverableError("user type is required")
	}

	session, err := h.sessions.Login(
		request.UserID,
		model.SubjectKind(strings.ToUpper(request.UserType)),
		request.FullName,
		model.LoginMethod(strings.ToUpper(request.Method)),
	)
	switch {
	case errors.Is(err, model.ErrAlreadyActive):
		// A duplicate login is a business rejection, not a delivery failure.
		log.WithFields(map[string]interface{}{
			"user":    request.UserID,
			"session": session.ID,
		}).Info("login rejected: the subject already has an active session")
		return nil
	case errors.Is(err, model.ErrInvariantViolation):
		return NewUnrecoverableError("unable to record the login: %s", err.Error())
	case err != nil:
		return NewRecoverableError("unable to record the login: %s", err.Error())
	}

	log.WithFields(map[string]interface{}{
		"user":    request.UserID,
		"session": session.ID,
		"parity":  session.Parity,
	}).Info("library login recorded")
	return nil
}

// Logout is a message handler for kiosk logout requests.
type Logout struct {
	sessions SessionManager
}

// NewLogout returns a new logout request handler.
func NewLogout(sessions SessionManager) *Logout {
	return &Logout{sessions: sessions}
}

// HandleMessage handles a single logout delivery.
func (h *Logout) HandleMessage(updateType string, delivery amqp.Delivery) error {
	request, err := parsePresenceRequest(delivery)
	if err != nil {
		return err
	}

	session, err := h.sessions.Logout(request.UserID)
	switch {
	case errors.Is(err, model.ErrNoActiveSession):
		log.WithField("user", request.UserID).Info("logout rejected: the subject is not inside the library")
		return nil
	case err != nil:
		return NewRecoverableError("unable to record the logout: %s", err.Error())
	}

	log.WithFields(map[string]interface{}{
		"user":    request.UserID,
		"session": session.ID,
		"parity":  session.Parity,
	}).Info("library logout recorded")
	return nil
}

// SweepRequest represents a deserialized on-demand sweep request, e.g. the
// one published at closing time.
type SweepRequest struct {
	Timestamp      string `json:"timestamp"`
	ThresholdHours int    `json:"thresholdHours"`
}

// Sweep is a message handler for on-demand forgotten-logout sweeps.
type Sweep struct {
	sweeps SweepRunner
}

// NewSweep returns a new sweep request handler.
func NewSweep(sweeps SweepRunner) *Sweep {
	return &Sweep{sweeps: sweeps}
}

// HandleMessage handles a single sweep delivery.
func (h *Sweep) HandleMessage(updateType string, delivery amqp.Delivery) error {
	var request SweepRequest
	if err := json.Unmarshal(delivery.Body, &request); err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}

	now, err := common.ParseTimestamp(request.Timestamp)
	if err != nil {
		return NewUnrecoverableError("invalid timestamp: %s", err.Error())
	}
	if now.IsZero() {
		now = time.Now()
	}

	flagged := h.sweeps.RunSweep(context.Background(), now, time.Duration(request.ThresholdHours)*time.Hour)
	log.WithField("flagged", len(flagged)).Info("on-demand sweep completed")
	return nil
}
