package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	idspkg "github.com/funcstream/funcstream/internal/runtime/ids"
	"github.com/funcstream/funcstream/internal/runtime/jsoncodec"
	metadatapkg "github.com/funcstream/funcstream/internal/runtime/metadata"
)

// Producer emits JSON payloads onto the configured transport.
type Producer interface {
	PublishMap(ctx context.Context, topic string, data map[string]any, metadata metadatapkg.Metadata) error
}

// NewMessageFromMap converts the provided payload into a Watermill message
// with a fresh ULID and the supplied metadata.
func NewMessageFromMap(data map[string]any, metadata metadatapkg.Metadata) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := message.NewMessage(idspkg.New(), payload)
	msg.Metadata = metadatapkg.ToWatermill(metadata)
	return msg, nil
}

// PublishMap marshals the payload and publishes it to the provided topic.
func PublishMap(ctx context.Context, publisher message.Publisher, topic string, data map[string]any, metadata metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewMessageFromMap(data, metadata)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(topic, msg)
}

// PublishMap emits the payload using the Service publisher so callers can
// inject messages without touching the internal Watermill APIs directly.
func (s *Service) PublishMap(ctx context.Context, topic string, data map[string]any, metadata metadatapkg.Metadata) error {
	if s == nil {
		return errors.New("function service is nil")
	}
	return PublishMap(ctx, s.publisher, topic, data, metadata)
}
