// Package jetstream provides a NATS JetStream transport with durable,
// consumer-group style subscriptions.
package jetstream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/funcstream/funcstream/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats-jetstream"

const (
	// StreamName is the JetStream stream all topics live under.
	StreamName = "FUNCSTREAM"

	defaultAckWait   = 30 * time.Second
	defaultFetchSize = 16
)

// ConnectFactory allows overriding the NATS connection for testing.
var ConnectFactory = func(url string) (*nats.Conn, error) {
	return nats.Connect(url)
}

func init() {
	transport.Register(TransportName, Build, transport.JetStreamCapabilities)
}

// Build creates a new JetStream transport. The config's subscription name
// becomes the durable consumer prefix so multiple services can share the
// stream without stealing each other's messages.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	t, err := newTransport(cfg.GetBrokerURL(), cfg.GetSubscriptionName(), logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{
		Publisher:  t,
		Subscriber: t,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.JetStreamCapabilities
}

type jsTransport struct {
	nc           *nats.Conn
	js           nats.JetStreamContext
	subscription string
	logger       watermill.LoggerAdapter

	closeOnce sync.Once
	closing   chan struct{}
}

func newTransport(url, subscription string, logger watermill.LoggerAdapter) (*jsTransport, error) {
	nc, err := ConnectFactory(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamName + ".>"},
		Retention: nats.LimitsPolicy,
	}
	if _, err := js.AddStream(streamCfg); err != nil {
		if _, err := js.UpdateStream(streamCfg); err != nil {
			logger.Debug("JetStream stream already exists", watermill.LogFields{"stream": StreamName})
		}
	}

	return &jsTransport{
		nc:           nc,
		js:           js,
		subscription: subscription,
		logger:       logger,
		closing:      make(chan struct{}),
	}, nil
}

func subject(topic string) string {
	return StreamName + "." + strings.ReplaceAll(topic, ".", "_")
}

func (t *jsTransport) consumerName(topic string) string {
	return t.subscription + "-" + strings.ReplaceAll(topic, ".", "_")
}

func (t *jsTransport) Publish(topic string, messages ...*message.Message) error {
	select {
	case <-t.closing:
		return fmt.Errorf("jetstream transport is closed")
	default:
	}

	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set("fs_uuid", msg.UUID)

		if _, err := t.js.PublishMsg(&nats.Msg{
			Subject: subject(topic),
			Data:    msg.Payload,
			Header:  headers,
		}); err != nil {
			return fmt.Errorf("publish to %q: %w", topic, err)
		}
	}
	return nil
}

func (t *jsTransport) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	select {
	case <-t.closing:
		return nil, fmt.Errorf("jetstream transport is closed")
	default:
	}

	durable := t.consumerName(topic)
	sub, err := t.js.PullSubscribe(subject(topic), durable, nats.AckWait(defaultAckWait))
	if err != nil {
		return nil, fmt.Errorf("subscribe to %q: %w", topic, err)
	}

	output := make(chan *message.Message)
	go t.consume(ctx, sub, output, topic)
	return output, nil
}

func (t *jsTransport) consume(ctx context.Context, sub *nats.Subscription, output chan<- *message.Message, topic string) {
	defer close(output)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closing:
			return
		default:
		}

		batch, err := sub.Fetch(defaultFetchSize, nats.MaxWait(time.Second))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			t.logger.Error("fetch failed", err, watermill.LogFields{"topic": topic})
			continue
		}

		for _, natsMsg := range batch {
			if !t.deliver(ctx, natsMsg, output) {
				return
			}
		}
	}
}

// deliver hands one message to the output channel and mirrors the consumer
// ack decision back to JetStream. Returns false when the consumer is gone.
func (t *jsTransport) deliver(ctx context.Context, natsMsg *nats.Msg, output chan<- *message.Message) bool {
	uuid := natsMsg.Header.Get("fs_uuid")
	msg := message.NewMessage(uuid, natsMsg.Data)
	for k := range natsMsg.Header {
		if k == "fs_uuid" {
			continue
		}
		msg.Metadata.Set(k, natsMsg.Header.Get(k))
	}
	msg.SetContext(ctx)

	select {
	case output <- msg:
	case <-ctx.Done():
		return false
	case <-t.closing:
		return false
	}

	select {
	case <-msg.Acked():
		if err := natsMsg.Ack(); err != nil {
			t.logger.Error("ack failed", err, nil)
		}
	case <-msg.Nacked():
		if err := natsMsg.Nak(); err != nil {
			t.logger.Error("nak failed", err, nil)
		}
	case <-ctx.Done():
		return false
	case <-t.closing:
		return false
	}
	return true
}

func (t *jsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closing)
		t.nc.Close()
	})
	return nil
}
