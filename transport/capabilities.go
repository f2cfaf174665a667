package transport

// Predefined capability sets for the built-in transports.
var (
	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		Name:             "channel",
	}

	// KafkaCapabilities for the Kafka transport.
	KafkaCapabilities = Capabilities{
		SupportsOrdering:       true,
		SupportsAck:            true,
		SupportsNack:           true,
		SupportsConsumerGroups: true,
		Persistent:             true,
		Name:                   "kafka",
	}

	// NATSCapabilities for the NATS Core transport. Core NATS is fire and
	// forget; there is no redelivery on nack.
	NATSCapabilities = Capabilities{
		SupportsOrdering: true,
		SupportsAck:      true,
		Name:             "nats",
	}

	// JetStreamCapabilities for the NATS JetStream transport.
	JetStreamCapabilities = Capabilities{
		SupportsOrdering:       true,
		SupportsAck:            true,
		SupportsNack:           true,
		SupportsConsumerGroups: true,
		Persistent:             true,
		Name:                   "nats-jetstream",
	}

	// RabbitMQCapabilities for the AMQP transport.
	RabbitMQCapabilities = Capabilities{
		SupportsOrdering:       true,
		SupportsAck:            true,
		SupportsNack:           true,
		SupportsConsumerGroups: true,
		Persistent:             true,
		Name:                   "rabbitmq",
	}

	// HTTPCapabilities for the webhook-style HTTP transport.
	HTTPCapabilities = Capabilities{
		SupportsAck: true,
		Name:        "http",
	}
)
