package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	"github.com/funcstream/funcstream/internal/runtime/ids"
	metadatapkg "github.com/funcstream/funcstream/internal/runtime/metadata"
)

// startEchoResponder answers requests on topic with the decoded payload,
// echoing the correlation id. failWith makes it reply with an error instead.
func startEchoResponder(t *testing.T, pubSub *gochannel.GoChannel, topic string, failWith string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	requests, err := pubSub.Subscribe(ctx, topic)
	if err != nil {
		t.Fatalf("subscribe requests: %v", err)
	}

	go func() {
		for msg := range requests {
			reply := message.NewMessage(ids.New(), msg.Payload)
			reply.Metadata.Set(metadatapkg.KeyCorrelationID, msg.Metadata.Get(metadatapkg.KeyCorrelationID))
			if failWith != "" {
				reply.Metadata.Set(metadatapkg.KeyError, failWith)
			}
			if err := pubSub.Publish(msg.Metadata.Get(metadatapkg.KeyReplyTo), reply); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
}

func TestRequesterRoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	startEchoResponder(t, pubSub, "rt-req", "")

	r, err := NewRequester(context.Background(), pubSub, pubSub, RequesterConfig{
		RequestTopic: "rt-req",
	}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := r.Request(ctx, map[string]any{"name": "lin"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if result["name"] != "lin" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestRequesterRemoteError(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	startEchoResponder(t, pubSub, "err-req", "module exploded")

	r, err := NewRequester(context.Background(), pubSub, pubSub, RequesterConfig{
		RequestTopic: "err-req",
	}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = r.Request(ctx, map[string]any{})
	var remote *errspkg.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if remote.Message != "module exploded" {
		t.Fatalf("unexpected remote message: %q", remote.Message)
	}
}

func TestRequesterTimesOutWithoutReply(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	r, err := NewRequester(context.Background(), pubSub, pubSub, RequesterConfig{
		RequestTopic: "silent-req",
		Timeout:      50 * time.Millisecond,
	}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = r.Request(ctx, map[string]any{})
	var timeout *errspkg.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRequesterValidations(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	if _, err := NewRequester(context.Background(), nil, pubSub, RequesterConfig{RequestTopic: "x"}, nil); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected publisher required error, got %v", err)
	}
	if _, err := NewRequester(context.Background(), pubSub, pubSub, RequesterConfig{}, nil); !errors.Is(err, errspkg.ErrTopicRequired) {
		t.Fatalf("expected topic required error, got %v", err)
	}
}

func TestRequesterCloseFailsPendingAndNewRequests(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	r, err := NewRequester(context.Background(), pubSub, pubSub, RequesterConfig{
		RequestTopic: "closed-req",
	}, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	_, err = r.Request(context.Background(), map[string]any{})
	if !errors.Is(err, errspkg.ErrTrackerClosed) {
		t.Fatalf("expected tracker closed error, got %v", err)
	}
}
