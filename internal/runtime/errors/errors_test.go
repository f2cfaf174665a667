package errors

import (
	sterrors "errors"
	"strings"
	"testing"
	"time"
)

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := sterrors.New("boom")
	err := &ConfigurationError{Source: "/etc/fs/config.yaml", Err: cause}

	if !sterrors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
	if !strings.Contains(err.Error(), "/etc/fs/config.yaml") {
		t.Fatalf("error should name the config source: %s", err)
	}
}

func TestConfigurationErrorWithoutSource(t *testing.T) {
	err := &ConfigurationError{Err: sterrors.New("missing module")}
	if !strings.Contains(err.Error(), "missing module") {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestProcessingErrorCarriesMessageIdentity(t *testing.T) {
	cause := sterrors.New("decode failed")
	err := &ProcessingError{MessageUUID: "01H", Topic: "orders", Err: cause}

	var pe *ProcessingError
	if !sterrors.As(err, &pe) {
		t.Fatal("errors.As should match *ProcessingError")
	}
	if pe.MessageUUID != "01H" || pe.Topic != "orders" {
		t.Fatalf("message identity lost: %+v", pe)
	}
	if !sterrors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
}

func TestInitializationErrorMentionsModule(t *testing.T) {
	err := &InitializationError{Module: "getCurrentTime", Err: sterrors.New("no format")}
	if !strings.Contains(err.Error(), "getCurrentTime") {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestTimeoutErrorMessage(t *testing.T) {
	err := &TimeoutError{CorrelationID: "abc123", After: 5 * time.Second}
	if !strings.Contains(err.Error(), "abc123") || !strings.Contains(err.Error(), "5s") {
		t.Fatalf("unexpected message: %s", err)
	}
}

func TestDuplicateCorrelationErrorMessage(t *testing.T) {
	err := &DuplicateCorrelationError{CorrelationID: "abc123"}
	if !strings.Contains(err.Error(), "abc123") {
		t.Fatalf("unexpected message: %s", err)
	}
}
