// Package handlerset connects the AMQP consumer side of the service to the
// message handlers.
package handlerset

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyverse-de/messaging/v9"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/jrmsu-wise/presence-tracker/common"
	"github.com/jrmsu-wise/presence-tracker/handlers"
)

var log = logrus.WithFields(logrus.Fields{"package": "handlerset"})

// HandlerSet represents a set of AMQP message handlers.
type HandlerSet struct {
	amqpClient   *messaging.Client
	amqpSettings *common.AMQPSettings
	queueName    string
	handlerFor   map[string]handlers.MessageHandler
}

// New creates a new handler set.
func New(
	amqpSettings *common.AMQPSettings,
	queueName string,
	handlerFor map[string]handlers.MessageHandler,
) (*HandlerSet, error) {
	wrapMsg := "unable to create the message handler set"

	// Create the AMQP client.
	amqpClient, err := messaging.NewClient(amqpSettings.URI, false)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Build and return the handler set.
	handlerSet := HandlerSet{
		amqpClient:   amqpClient,
		amqpSettings: amqpSettings,
		queueName:    queueName,
		handlerFor:   handlerFor,
	}
	return &handlerSet, nil
}

// routingKeys returns one routing key for each registered update type.
func (hs *HandlerSet) routingKeys() []string {
	keys := make([]string, 0, len(hs.handlerFor))
	for updateType := range hs.handlerFor {
		keys = append(keys, fmt.Sprintf("presence.%s", updateType))
	}
	return keys
}

// handleDelivery dispatches a single delivery to the handler registered for
// its update type. The update type is the last component of the routing key.
func (hs *HandlerSet) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	components := strings.Split(delivery.RoutingKey, ".")
	updateType := components[len(components)-1]

	handler, ok := hs.handlerFor[updateType]
	if !ok {
		log.Errorf("no handler registered for update type: %s", updateType)
		if err := delivery.Reject(false); err != nil {
			log.Errorf("unable to reject the delivery: %s", err.Error())
		}
		return
	}

	err := handler.HandleMessage(updateType, delivery)
	switch err.(type) {
	case nil:
		if ackErr := delivery.Ack(false); ackErr != nil {
			log.Errorf("unable to acknowledge the delivery: %s", ackErr.Error())
		}
	case handlers.RecoverableError:
		log.Errorf("requeueing %s message: %s", updateType, err.Error())
		if rejectErr := delivery.Reject(true); rejectErr != nil {
			log.Errorf("unable to reject the delivery: %s", rejectErr.Error())
		}
	default:
		log.Errorf("dropping %s message: %s", updateType, err.Error())
		if rejectErr := delivery.Reject(false); rejectErr != nil {
			log.Errorf("unable to reject the delivery: %s", rejectErr.Error())
		}
	}
}

// Listen binds the consumer queue and begins handling deliveries. It returns
// as soon as consumption starts; consumer errors surface through the client's
// Listen loop.
func (hs *HandlerSet) Listen() {
	hs.amqpClient.AddConsumerMulti(
		hs.amqpSettings.ExchangeName,
		hs.amqpSettings.ExchangeType,
		hs.queueName,
		hs.routingKeys(),
		hs.handleDelivery,
		100,
	)
	go hs.amqpClient.Listen()
}

// Close closes a message handler set.
func (hs *HandlerSet) Close() {
	hs.amqpClient.Close()
}
