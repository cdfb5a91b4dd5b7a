package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var errSubscriptionClosed = errors.New("backplane subscription closed")

// relayMessage is what travels over the Redis channel.
type relayMessage struct {
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisBroadcaster fans broadcasts out to every instance through Redis
// pub/sub. Each instance, this one included, delivers received frames to its
// local Hub. While the subscription is down frames are delivered locally so
// this instance's clients still get them.
type RedisBroadcaster struct {
	client     *redis.Client
	channel    string
	hub        *Hub
	subscribed atomic.Bool
}

func NewRedisBroadcaster(client *redis.Client, channel string, hub *Hub) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: channel, hub: hub}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	return b.BroadcastExcept(ctx, room, event, payload, "")
}

// BroadcastExcept publishes the frame. If Redis is unreachable the frame is
// still delivered locally and the publish error is returned.
func (b *RedisBroadcaster) BroadcastExcept(ctx context.Context, room, event string, payload interface{}, exceptSocketID string) error {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	metrics.WSBroadcasts.WithLabelValues(event).Inc()

	msg, err := json.Marshal(relayMessage{Room: room, Except: exceptSocketID, Frame: frame})
	if err != nil {
		return fmt.Errorf("failed to encode relay message: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, msg).Err(); err != nil {
		b.hub.Deliver(room, frame, exceptSocketID)
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	if !b.subscribed.Load() {
		b.hub.Deliver(room, frame, exceptSocketID)
	}
	return nil
}

// Serve keeps the subscription alive until ctx is done, resubscribing with
// exponential backoff whenever Run returns.
func (b *RedisBroadcaster) Serve(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0
	policy.MaxInterval = 30 * time.Second
	serve(ctx, b.Run, policy)
}

func serve(ctx context.Context, run func(context.Context) error, policy backoff.BackOff) {
	operation := func() error {
		err := run(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errSubscriptionClosed
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logrus.WithError(err).WithField("retry_in", next).Warn("Realtime backplane down, delivering locally")
	}
	_ = backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
}

// Run subscribes to the channel and delivers until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	logrus.WithField("channel", b.channel).Info("Realtime backplane subscribed")

	b.subscribed.Store(true)
	defer b.subscribed.Store(false)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(m.Payload)
		}
	}
}

func (b *RedisBroadcaster) handle(payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logrus.WithError(err).Warn("Dropping malformed backplane message")
		return
	}
	if msg.Room == "" || len(msg.Frame) == 0 {
		return
	}
	b.hub.Deliver(msg.Room, msg.Frame, msg.Except)
}
