package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
	"github.com/funcstream/funcstream/internal/runtime/fscontext"
	"github.com/funcstream/funcstream/internal/runtime/jsoncodec"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
	modulespkg "github.com/funcstream/funcstream/internal/runtime/modules"
	_ "github.com/funcstream/funcstream/transport/channel"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

type testPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]*message.Message, len(p.published[topic]))
	copy(clone, p.published[topic])
	return clone
}

type testSubscriber struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ch := make(chan *message.Message)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

func (s *testSubscriber) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// newEchoRegistry registers a function that copies the input and stamps an
// "echoed" marker.
func newEchoRegistry(name string) *modulespkg.Registry {
	reg := modulespkg.NewRegistry()
	reg.RegisterFunction(name, func(_ context.Context, _ *fscontext.Context, data map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(data)+1)
		for k, v := range data {
			out[k] = v
		}
		out["echoed"] = true
		return out, nil
	})
	return reg
}

func newChannelConfig(module string) *configpkg.Config {
	return &configpkg.Config{
		Transport:            "channel",
		Module:               module,
		Sources:              []string{"test-in"},
		Sink:                 "test-out",
		SubscriptionName:     "test-subscription",
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
	}
}

// startService runs the service in the background and waits until all its
// subscriptions are open. Cleanup stops the service and waits for exit.
func startService(t *testing.T, svc *Service) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	select {
	case <-svc.Running():
	case err := <-done:
		t.Fatalf("service exited before running: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not start in time")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("service did not stop in time")
		}
	})
}

func decodePayload(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	data, err := jsoncodec.DecodeMap(payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return data
}
