package handlerset

import (
	"context"

	"github.com/cyverse-de/messaging/v9"
	"github.com/pkg/errors"

	"github.com/jrmsu-wise/presence-tracker/bus"
	"github.com/jrmsu-wise/presence-tracker/common"
	"github.com/jrmsu-wise/presence-tracker/model"
)

// MessagePublisher describes the interface used to publish outgoing
// notification messages.
type MessagePublisher interface {
	PublishNotificationMessage(message *messaging.WrappedNotificationMessage) error
}

// UnreadCounter counts a recipient's unread notifications so that outgoing
// messages can carry an up-to-date badge count.
type UnreadCounter interface {
	ListNotifications(recipient model.Recipient, unreadOnly bool, page, limit int) ([]model.Notification, int, int, error)
}

// NotificationPublisher forwards notifications from the in-process fan-out
// bus to the AMQP notifications exchange, where the websocket bridge and the
// mobile mirror pick them up.
type NotificationPublisher struct {
	amqpClient MessagePublisher
	unread     UnreadCounter
}

// NewNotificationPublisher creates a messaging client of its own, sets up
// publishing on the given exchange, and returns a publisher that uses it.
func NewNotificationPublisher(
	amqpSettings *common.AMQPSettings,
	unread UnreadCounter,
) (*NotificationPublisher, error) {
	wrapMsg := "unable to create the notification publisher"

	amqpClient, err := messaging.NewClient(amqpSettings.URI, false)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	if err := amqpClient.SetupPublishing(amqpSettings.ExchangeName); err != nil {
		amqpClient.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &NotificationPublisher{amqpClient: amqpClient, unread: unread}, nil
}

// Forward publishes every notification arriving on the subscription until the
// subscription is closed or the context is canceled. It is meant to be run in
// a goroutine of its own.
func (p *NotificationPublisher) Forward(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case notification, ok := <-sub.C():
			if !ok {
				return
			}
			if err := p.publish(notification); err != nil {
				log.Errorf("unable to publish notification %s: %s", notification.ID, err.Error())
			}
		}
	}
}

// publish converts one notification record to the outgoing message format and
// publishes it.
func (p *NotificationPublisher) publish(notification model.Notification) error {
	unread := 0
	if p.unread != nil {
		_, _, count, err := p.unread.ListNotifications(notification.Recipient, true, 1, 1)
		if err != nil {
			log.Errorf("unable to count unread notifications for %s: %s", notification.Recipient, err.Error())
		} else {
			unread = count
		}
	}

	outgoing := &messaging.NotificationMessage{
		Deleted: false,
		Seen:    notification.Read,
		Type:    string(notification.Kind),
		User:    string(notification.Recipient),
		Subject: notification.Title,
		Message: map[string]interface{}{
			"id":        notification.ID,
			"text":      notification.Message,
			"timestamp": common.FormatTimestamp(notification.CreatedAt),
		},
		Payload: notification.Details,
	}
	return p.amqpClient.PublishNotificationMessage(&messaging.WrappedNotificationMessage{
		Total:   int64(unread),
		Message: outgoing,
	})
}

// Close closes the publisher's messaging client.
func (p *NotificationPublisher) Close() {
	if amqpClient, ok := p.amqpClient.(*messaging.Client); ok {
		amqpClient.Close()
	}
}
