// Package sweeper detects forgotten logouts: sessions left open past a
// threshold. The sweep only flags sessions and notifies; closing a session
// remains exclusively the subject's own logout.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jrmsu-wise/presence-tracker/model"
	"github.com/jrmsu-wise/presence-tracker/presence"
)

// DefaultThreshold is how long a session may stay open before it is
// considered forgotten. Elapsed wall-clock time, not business hours.
const DefaultThreshold = 8 * time.Hour

// DefaultInterval is how often the background runner sweeps.
const DefaultInterval = 5 * time.Minute

// DefaultContactEmail is the address shown in forgotten-logout reminders when
// the deployment doesn't configure one.
const DefaultContactEmail = "library@jrmsu.edu.ph"

// Sweeper scans the presence store for sessions open past a threshold and
// drives the notification engine for each newly flagged session.
type Sweeper struct {
	store        *presence.Store
	notifier     presence.Notifier
	threshold    time.Duration
	contactEmail string
	log          *logrus.Entry
}

// New returns a sweeper over the given presence store. A non-positive
// threshold falls back to DefaultThreshold, and an empty contact email falls
// back to DefaultContactEmail.
func New(store *presence.Store, notifier presence.Notifier, threshold time.Duration, contactEmail string, log *logrus.Entry) *Sweeper {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if contactEmail == "" {
		contactEmail = DefaultContactEmail
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sweeper{
		store:        store,
		notifier:     notifier,
		threshold:    threshold,
		contactEmail: contactEmail,
		log:          log,
	}
}

// RunSweep flags every active session whose login is older than the threshold
// and returns the sessions that were newly flagged. Re-running over the same
// clock value is a no-op for already-flagged sessions, so the sweep is
// idempotent. Flagging one session is a single-lock atomic step, which makes
// a context cancellation between sessions always safe.
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time, threshold time.Duration) []model.Session {
	if threshold <= 0 {
		threshold = s.threshold
	}
	cutoff := now.Add(-threshold)

	var flagged []model.Session
	for _, candidate := range s.store.ActiveSessions() {
		if ctx.Err() != nil {
			break
		}
		if !candidate.LoginAt.Before(cutoff) || candidate.FlaggedForgotten {
			continue
		}

		// Re-check under the store lock: the subject may have logged out, or
		// a concurrent sweep may have flagged the session already.
		session, ok := s.store.FlagForgotten(candidate.ID)
		if !ok {
			continue
		}
		flagged = append(flagged, session)
		s.notifyForgotten(session)
	}
	return flagged
}

// notifyForgotten sends the two notifications for a newly flagged session:
// an informational one to all staff and an apologetic reminder to the
// subject. Notification failures don't fail the sweep.
func (s *Sweeper) notifyForgotten(session model.Session) {
	if s.notifier == nil {
		return
	}

	variables := map[string]string{
		"userId":       session.SubjectID,
		"fullName":     session.DisplayName,
		"contactEmail": s.contactEmail,
	}
	details := map[string]interface{}{
		"userId":    session.SubjectID,
		"userType":  string(session.SubjectKind),
		"sessionId": session.ID,
		"action":    "forgotten_logout",
	}
	dedupKey := fmt.Sprintf("forgotten-%s", session.ID)

	if _, err := s.notifier.Notify(model.AllStaff, model.KindForgottenLogout, variables, details, dedupKey); err != nil {
		s.log.WithError(err).WithField("session", session.ID).Warn("unable to notify staff of a forgotten logout")
	}
	recipient := model.Recipient(session.SubjectID)
	if _, err := s.notifier.Notify(recipient, model.KindForgottenLogout, variables, details, dedupKey); err != nil {
		s.log.WithError(err).WithField("session", session.ID).Warn("unable to remind the subject of a forgotten logout")
	}
}

// Run sweeps on a fixed interval until the context is canceled. A
// non-positive interval falls back to DefaultInterval.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.WithField("interval", interval.String()).Info("forgotten-session sweeper started")
	for {
		select {
		case now := <-ticker.C:
			flagged := s.RunSweep(ctx, now, s.threshold)
			if len(flagged) > 0 {
				s.log.WithField("flagged", len(flagged)).Info("sweep flagged forgotten sessions")
			}
		case <-ctx.Done():
			s.log.Info("forgotten-session sweeper stopped")
			return
		}
	}
}
