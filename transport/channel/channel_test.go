package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funcstream/funcstream/transport"
)

type mockConfig struct{}

func (m *mockConfig) GetTransport() string         { return TransportName }
func (m *mockConfig) GetBrokerURL() string         { return "" }
func (m *mockConfig) GetKafkaBrokers() []string    { return nil }
func (m *mockConfig) GetSubscriptionName() string  { return "test" }
func (m *mockConfig) GetAuthPlugin() string        { return "" }
func (m *mockConfig) GetAuthParams() string        { return "" }
func (m *mockConfig) GetHTTPServerAddress() string { return "" }

func TestRegisteredWithDefaultRegistry(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "channel", caps.Name)
	assert.True(t, caps.SupportsAck)
	assert.True(t, caps.SupportsNack)
	assert.False(t, caps.Persistent)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.ChannelCapabilities, Capabilities())
}

func TestBuildRoundTrip(t *testing.T) {
	tr, err := Build(context.Background(), &mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, tr.Publisher)
	require.NotNil(t, tr.Subscriber)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := tr.Subscriber.Subscribe(ctx, "test-topic")
	require.NoError(t, err)

	sent := message.NewMessage("1", []byte(`{"hello":"world"}`))
	require.NoError(t, tr.Publisher.Publish("test-topic", sent))

	select {
	case received := <-messages:
		assert.Equal(t, sent.Payload, received.Payload)
		received.Ack()
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}
