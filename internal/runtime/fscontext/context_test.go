package fscontext

import (
	"testing"

	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
)

func newTestContext() *Context {
	return New(&configpkg.Config{
		Module: "getCurrentTime",
		Custom: map[string]string{
			"format": "2006-01-02 15:04:05",
			"empty":  "",
		},
	})
}

func TestGetConfigDistinguishesAbsentFromEmpty(t *testing.T) {
	fc := newTestContext()

	if value, ok := fc.GetConfig("format"); !ok || value != "2006-01-02 15:04:05" {
		t.Fatalf("unexpected value: %q ok=%v", value, ok)
	}
	if value, ok := fc.GetConfig("empty"); !ok || value != "" {
		t.Fatalf("empty value must still report present: %q ok=%v", value, ok)
	}
	if _, ok := fc.GetConfig("missing"); ok {
		t.Fatal("unset key must report absent")
	}
}

func TestGetConfigsReturnsCopy(t *testing.T) {
	fc := newTestContext()

	snapshot := fc.GetConfigs()
	snapshot["format"] = "mutated"

	if value, _ := fc.GetConfig("format"); value == "mutated" {
		t.Fatal("mutating the snapshot must not affect the context")
	}
}

func TestModuleName(t *testing.T) {
	if got := newTestContext().Module(); got != "getCurrentTime" {
		t.Fatalf("unexpected module name: %q", got)
	}
}

func TestNewNilConfigPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil config")
		}
	}()
	New(nil)
}
