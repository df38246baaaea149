package jetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

// DefaultMaxAckPending bounds how many messages the server may leave
// unacknowledged per durable consumer. Generous on purpose: backlog replay
// after downtime should not stall on the ack window.
const DefaultMaxAckPending = 1024

// Client wraps a NATS connection with JetStream pull-consumer management.
// Subscriptions are created lazily and cached, so binding is safe to repeat
// on every poll cycle.
type Client struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewClient connects to the NATS server at url and initializes a JetStream
// context.
func NewClient(url string, log *logger.Logger) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name("identity-replicator"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{
		nc:     nc,
		js:     js,
		logger: log.With("component", "jetstream_client"),
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Pull ensures the binding's durable consumer exists, then fetches up to
// batch messages, waiting at most wait. A wait that elapses with nothing
// queued returns an empty batch and no error.
func (c *Client) Pull(ctx context.Context, b events.StreamBinding, batch int, wait time.Duration) ([]events.Message, error) {
	sub, err := c.ensure(ctx, b)
	if err != nil {
		return nil, err
	}

	msgs, err := sub.Fetch(batch, nats.MaxWait(wait))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch from stream %s: %w", b.Stream, err)
	}

	out := make([]events.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &message{msg: m})
	}
	return out, nil
}

// ensure fetches the durable consumer by name, creating it on first use with
// explicit acks and full-backlog replay. The durable name anchors the
// server-side delivery cursor across process restarts.
func (c *Client) ensure(ctx context.Context, b events.StreamBinding) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := b.Stream + "/" + b.Durable
	if sub, ok := c.subs[key]; ok && sub.IsValid() {
		return sub, nil
	}

	_, err := c.js.ConsumerInfo(b.Stream, b.Durable, nats.Context(ctx))
	if err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return nil, fmt.Errorf("failed to look up consumer %s on stream %s: %w", b.Durable, b.Stream, err)
		}

		_, err = c.js.AddConsumer(b.Stream, &nats.ConsumerConfig{
			Durable:       b.Durable,
			FilterSubject: b.FilterSubject,
			AckPolicy:     nats.AckExplicitPolicy,
			DeliverPolicy: nats.DeliverAllPolicy,
			MaxAckPending: DefaultMaxAckPending,
		}, nats.Context(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer %s on stream %s: %w", b.Durable, b.Stream, err)
		}

		c.logger.Info(ctx, "created durable consumer",
			"stream", b.Stream,
			"durable", b.Durable,
			"filter_subject", b.FilterSubject,
		)
	}

	sub, err := c.js.PullSubscribe(b.FilterSubject, b.Durable, nats.Bind(b.Stream, b.Durable))
	if err != nil {
		return nil, fmt.Errorf("failed to bind pull subscription %s on stream %s: %w", b.Durable, b.Stream, err)
	}

	c.subs[key] = sub
	return sub, nil
}

// Close drains the connection, releasing all cached subscriptions.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		_ = sub.Unsubscribe()
		delete(c.subs, key)
	}
	c.nc.Close()
}

var _ events.Message = (*message)(nil)

// message adapts a *nats.Msg to the domain Message port. Acknowledgment
// operations the broker cannot perform (no reply subject) degrade to no-ops.
type message struct {
	msg *nats.Msg
}

func (m *message) Body() []byte { return m.msg.Data }

func (m *message) Ack() error {
	if err := m.msg.Ack(); err != nil && !errors.Is(err, nats.ErrMsgNoReply) && !errors.Is(err, nats.ErrMsgAlreadyAckd) {
		return err
	}
	return nil
}

func (m *message) Nak() error {
	if err := m.msg.Nak(); err != nil && !errors.Is(err, nats.ErrMsgNoReply) && !errors.Is(err, nats.ErrMsgAlreadyAckd) {
		return err
	}
	return nil
}
