// Package handlers translates inbound AMQP deliveries from the kiosk bridge
// into presence-core operations.
package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/jrmsu-wise/presence-tracker/model"
)

var log = logrus.WithFields(logrus.Fields{"package": "handlers"})

// MessageHandler describes the interface used to handle AMQP deliveries.
type MessageHandler interface {
	HandleMessage(updateType string, delivery amqp.Delivery) error
}

// SessionManager is the presence state machine surface the handlers drive.
type SessionManager interface {
	Login(subjectID string, subjectKind model.SubjectKind, displayName string, method model.LoginMethod) (model.Session, error)
	Logout(subjectID string) (model.Session, error)
}

// SweepRunner runs a forgotten-logout sweep on demand.
type SweepRunner interface {
	RunSweep(ctx context.Context, now time.Time, threshold time.Duration) []model.Session
}

// InitMessageHandlers returns a map from update type to message handler.
func InitMessageHandlers(sessions SessionManager, sweeps SweepRunner) map[string]MessageHandler {
	return map[string]MessageHandler{
		"login":  NewLogin(sessions),
		"logout": NewLogout(sessions),
		"sweep":  NewSweep(sweeps),
	}
}
