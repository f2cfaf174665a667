package errors

import (
	sterrors "errors"
	"fmt"
	"time"
)

var (
	ErrServiceRequired      = sterrors.New("funcstream: service is required")
	ErrModuleRequired       = sterrors.New("funcstream: module name is required")
	ErrNoSources            = sterrors.New("funcstream: at least one of sources or requestSource is required")
	ErrSubscriptionRequired = sterrors.New("funcstream: subscriptionName is required")
	ErrPublisherRequired    = sterrors.New("funcstream: publisher is required")
	ErrTopicRequired        = sterrors.New("funcstream: topic is required")
	ErrTrackerClosed        = sterrors.New("funcstream: correlation tracker is closed")
	ErrNotIdle              = sterrors.New("funcstream: service has already been started")
)

// ConfigurationError reports an unreadable, malformed, or invalid
// configuration source. It is fatal and only occurs at startup.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Source == "" {
		return "invalid configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid configuration %q: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InitializationError reports a module whose Init failed. It is fatal: the
// router must not open any subscription after observing it.
type InitializationError struct {
	Module string
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("module %q failed to initialize: %v", e.Module, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ProcessingError wraps a per-message failure. It carries the identity of
// the message that triggered it and is recoverable: the router logs it,
// retries according to configuration, and keeps serving other messages.
type ProcessingError struct {
	MessageUUID string
	Topic       string
	Err         error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing message %s from %q failed: %v", e.MessageUUID, e.Topic, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// UnprocessablePayloadError marks a payload that can never be decoded.
// Retrying is pointless; the message belongs on the poison queue.
type UnprocessablePayloadError struct {
	MessageUUID string
	Err         error
}

func (e *UnprocessablePayloadError) Error() string {
	return fmt.Sprintf("message %s has an unprocessable payload: %v", e.MessageUUID, e.Err)
}

func (e *UnprocessablePayloadError) Unwrap() error { return e.Err }

// TimeoutError is delivered to a caller whose pending request was expired
// before a reply arrived.
type TimeoutError struct {
	CorrelationID string
	After         time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.CorrelationID, e.After)
}

// RemoteError carries a failure reported by the module on the other side
// of a request/response exchange.
type RemoteError struct {
	CorrelationID string
	Message       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("request %s failed remotely: %s", e.CorrelationID, e.Message)
}

// DuplicateCorrelationError indicates a correlation id that is already
// pending, typically a broker-level redelivery. The duplicate is dropped.
type DuplicateCorrelationError struct {
	CorrelationID string
}

func (e *DuplicateCorrelationError) Error() string {
	return fmt.Sprintf("correlation id %s is already pending", e.CorrelationID)
}
