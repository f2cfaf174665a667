package modules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
	"github.com/funcstream/funcstream/internal/runtime/fscontext"
)

func testContext() *fscontext.Context {
	return fscontext.New(&configpkg.Config{Module: "test"})
}

func TestAsModuleInvokesFunction(t *testing.T) {
	m := AsModule(func(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
		return map[string]any{"echo": data["in"]}, nil
	})

	if err := m.Init(testContext()); err != nil {
		t.Fatalf("function modules must not fail Init: %v", err)
	}

	out, err := m.Process(context.Background(), testContext(), map[string]any{"in": "x"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out["echo"] != "x" {
		t.Fatalf("unexpected result: %v", out)
	}
}

type countingModule struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (c *countingModule) Init(*fscontext.Context) error { return nil }

func (c *countingModule) Process(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return nil, nil
}

func TestSerializeEnforcesSingleInFlightProcess(t *testing.T) {
	counting := &countingModule{}
	m := Serialize(counting)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Process(context.Background(), testContext(), nil)
		}()
	}
	wg.Wait()

	if counting.maxSeen != 1 {
		t.Fatalf("expected at most one in-flight Process call, saw %d", counting.maxSeen)
	}
}

func TestSerializeIsIdempotent(t *testing.T) {
	m := Serialize(AsModule(func(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
		return nil, nil
	}))
	if Serialize(m) != m {
		t.Fatal("double Serialize must not add another layer")
	}
}

func TestRegistryResolvesRegisteredModule(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunction("echo", func(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
		return data, nil
	})

	if !r.Has("echo") {
		t.Fatal("registry should report registered module")
	}
	m, err := r.New("echo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m == nil {
		t.Fatal("expected module instance")
	}
}

func TestRegistryUnknownModule(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("missing"); err == nil {
		t.Fatal("unknown module must be an error")
	}
}

func TestRegistryNewReturnsFreshInstances(t *testing.T) {
	r := NewRegistry()
	r.Register("stateful", func() Module { return &countingModule{} })

	a, _ := r.New("stateful")
	b, _ := r.New("stateful")
	if a == b {
		t.Fatal("each New must produce a fresh instance")
	}
}

type failingInitModule struct{}

func (failingInitModule) Init(*fscontext.Context) error {
	return errors.New("missing required config")
}

func (failingInitModule) Process(context.Context, *fscontext.Context, map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestSerializePropagatesInitError(t *testing.T) {
	m := Serialize(failingInitModule{})
	if err := m.Init(testContext()); err == nil {
		t.Fatal("Init error must propagate through Serialize")
	}
}
