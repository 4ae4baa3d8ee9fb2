// Package events runs detached side effects off the request path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/pkg/logging"
)

const (
	// TopicPreferenceIncrement carries a PreferenceIncrement
	TopicPreferenceIncrement = "interactions.preference_increment"
	// TopicViewTracked carries a ViewTracked
	TopicViewTracked = "interactions.view_tracked"
	// TopicAuthState carries an AuthStateChanged
	TopicAuthState = "auth.state_changed"

	handlerTimeout = 10 * time.Second
)

// PreferenceIncrement asks for a user's topic counter to be bumped
type PreferenceIncrement struct {
	UserID string `json:"user_id"`
	Topic  string `json:"topic"`
}

// ViewTracked records that a user opened a card
type ViewTracked struct {
	UserID string `json:"user_id"`
	CardID string `json:"card_id"`
}

// AuthStateChanged is emitted on sign-up, sign-in and sign-out
type AuthStateChanged struct {
	Event  string `json:"event"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// HandlerFunc processes one payload. Its error is logged, never retried.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Bus is an in-process publish/subscribe bus. Publish never blocks on
// handlers, and handler failures never reach the publisher.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBus creates an in-memory bus
func NewBus() *Bus {
	logger := logging.WithComponent("event-bus")
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            100,
				BlockPublishUntilSubscriberAck: false,
			},
			NewZapAdapter(logger),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish JSON-encodes event and hands it to every subscriber of topic
func (b *Bus) Publish(topic string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", topic, err)
	}
	return nil
}

// Handle subscribes handler to topic. Each message is acked whether or not
// the handler succeeds.
func (b *Bus) Handle(topic string, handler HandlerFunc) error {
	messages, err := b.pubsub.Subscribe(b.ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.dispatch(topic, msg, handler)
		}
	}()
	return nil
}

func (b *Bus) dispatch(topic string, msg *message.Message, handler HandlerFunc) {
	defer msg.Ack()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("topic", topic),
				zap.String("message_id", msg.UUID),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	if err := handler(ctx, msg.Payload); err != nil {
		b.logger.Warn("Event handler failed",
			zap.String("topic", topic),
			zap.String("message_id", msg.UUID),
			zap.Error(err))
	}
}

// Close stops delivery and waits for in-flight handlers to return
func (b *Bus) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
