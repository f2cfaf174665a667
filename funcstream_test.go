package funcstream_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	funcstream "github.com/funcstream/funcstream"
	_ "github.com/funcstream/funcstream/transport/channel"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := writeConfig(t, `
module: greeter
transport: channel
sources:
  - topic-a
sink: topic-b
subscriptionName: greeter-sub
`)
	t.Setenv(funcstream.EnvConfigPath, path)

	conf, err := funcstream.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if conf.Module != "greeter" {
		t.Fatalf("unexpected module: %q", conf.Module)
	}
	if conf.RetryCount == 0 {
		t.Fatal("expected defaults to be applied")
	}
}

func TestRunFailsWithoutConfigPath(t *testing.T) {
	t.Setenv(funcstream.EnvConfigPath, "")

	err := funcstream.Run(context.Background())
	var cfgErr *funcstream.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRegisterFunctionAndRequestRoundTrip(t *testing.T) {
	funcstream.RegisterFunction("facade-greeter", func(_ context.Context, fc *funcstream.Context, data map[string]any) (map[string]any, error) {
		greeting, _ := fc.GetConfig("greeting")
		if greeting == "" {
			greeting = "Hi"
		}
		return map[string]any{"result": fmt.Sprintf("%s, %v!", greeting, data["name"])}, nil
	})

	conf := &funcstream.Config{
		Transport:        "channel",
		Module:           "facade-greeter",
		RequestSource:    "facade-req",
		SubscriptionName: "facade-sub",
		Custom:           map[string]string{"greeting": "Hello"},
	}

	svc, err := funcstream.NewService(conf, nil, context.Background(), funcstream.Dependencies{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("service did not stop")
		}
	})

	select {
	case <-svc.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("service did not start")
	}

	requester, err := svc.NewRequester(context.Background(), funcstream.RequesterConfig{})
	if err != nil {
		t.Fatalf("new requester: %v", err)
	}
	defer requester.Close()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()
	result, err := requester.Request(reqCtx, map[string]any{"name": "sam"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if result["result"] != "Hello, sam!" {
		t.Fatalf("unexpected result: %v", result)
	}
}
