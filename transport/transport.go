// Package transport defines the broker boundary of the runtime. Each
// backend (kafka, nats, rabbitmq, ...) lives in its own sub-package and
// registers itself with the transport registry; the router only ever sees a
// publisher/subscriber pair.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines the publisher and subscriber produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder creates a transport from configuration.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values transports need without
// depending on the full config package.
type Config interface {
	// GetTransport returns the transport type name.
	GetTransport() string

	// GetBrokerURL returns the broker connection string.
	GetBrokerURL() string

	// GetKafkaBrokers returns BrokerURL split into a broker list.
	GetKafkaBrokers() []string

	// GetSubscriptionName returns the consumer-group name shared by all
	// subscriptions.
	GetSubscriptionName() string

	// GetAuthPlugin and GetAuthParams return the opaque auth settings.
	GetAuthPlugin() string
	GetAuthParams() string

	// GetHTTPServerAddress returns the listen address of the http transport.
	GetHTTPServerAddress() string
}

// Capabilities describes the delivery guarantees of a transport backend.
type Capabilities struct {
	// SupportsOrdering reports whether messages within a topic/partition are
	// delivered in order. Even then, cross-message ordering only holds under
	// single-worker processing.
	SupportsOrdering bool

	// SupportsAck and SupportsNack report explicit acknowledgment support.
	// Both are required for at-least-once delivery.
	SupportsAck  bool
	SupportsNack bool

	// SupportsConsumerGroups reports whether the subscription name maps to a
	// broker-side consumer group.
	SupportsConsumerGroups bool

	// Persistent reports whether messages survive a broker restart.
	Persistent bool

	// Name is the registered transport name.
	Name string
}

// SupportsReliableDelivery reports at-least-once semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}
