package funcstream

import (
	"context"
	"log/slog"

	runtimepkg "github.com/funcstream/funcstream/internal/runtime"
	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
	correlationpkg "github.com/funcstream/funcstream/internal/runtime/correlation"
	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	fscontextpkg "github.com/funcstream/funcstream/internal/runtime/fscontext"
	idspkg "github.com/funcstream/funcstream/internal/runtime/ids"
	jsoncodec "github.com/funcstream/funcstream/internal/runtime/jsoncodec"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
	metadatapkg "github.com/funcstream/funcstream/internal/runtime/metadata"
	modulespkg "github.com/funcstream/funcstream/internal/runtime/modules"
	transportpkg "github.com/funcstream/funcstream/transport"
)

type (
	Config       = configpkg.Config
	Service      = runtimepkg.Service
	Dependencies = runtimepkg.Dependencies
	State        = runtimepkg.State

	// Context carries the per-instance configuration into module code.
	Context = fscontextpkg.Context

	// Function is a stateless module: one call per message, no Init.
	Function = modulespkg.Function
	// Module is the stateful contract with Init and Process.
	Module         = modulespkg.Module
	ModuleFactory  = modulespkg.Factory
	ModuleRegistry = modulespkg.Registry

	Requester       = runtimepkg.Requester
	RequesterConfig = runtimepkg.RequesterConfig

	CorrelationTracker = correlationpkg.Tracker
	CorrelationResult  = correlationpkg.Result

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Producer = runtimepkg.Producer

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	HandlerInfo  = runtimepkg.HandlerInfo
	HandlerStats = runtimepkg.HandlerStats
	HandlerKind  = runtimepkg.HandlerKind

	ConfigurationError        = errspkg.ConfigurationError
	InitializationError       = errspkg.InitializationError
	ProcessingError           = errspkg.ProcessingError
	TimeoutError              = errspkg.TimeoutError
	RemoteError               = errspkg.RemoteError
	DuplicateCorrelationError = errspkg.DuplicateCorrelationError
	UnprocessablePayloadError = errspkg.UnprocessablePayloadError

	// Transport types. Import individual transports via:
	// _ "github.com/funcstream/funcstream/transport/kafka"
	Transport             = transportpkg.Transport
	TransportBuilder      = transportpkg.Builder
	TransportConfig       = transportpkg.Config
	TransportRegistry     = transportpkg.Registry
	TransportCapabilities = transportpkg.Capabilities
)

// Lifecycle states of a Service.
const (
	StateIdle         = runtimepkg.StateIdle
	StateInitializing = runtimepkg.StateInitializing
	StateRunning      = runtimepkg.StateRunning
	StateDraining     = runtimepkg.StateDraining
	StateStopped      = runtimepkg.StateStopped
)

var (
	NewService   = runtimepkg.NewService
	NewRequester = runtimepkg.NewRequester

	LoadConfig     = configpkg.Load
	LoadConfigFile = configpkg.LoadFile

	AsModule        = modulespkg.AsModule
	NewRegistry     = modulespkg.NewRegistry
	DefaultRegistry = modulespkg.DefaultRegistry

	NewCorrelationTracker = correlationpkg.NewTracker

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrModuleRequired       = errspkg.ErrModuleRequired
	ErrNoSources            = errspkg.ErrNoSources
	ErrSubscriptionRequired = errspkg.ErrSubscriptionRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrTrackerClosed        = errspkg.ErrTrackerClosed
	ErrNotIdle              = errspkg.ErrNotIdle

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.Nop

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.New
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyReplyTo       = metadatapkg.KeyReplyTo
	MetadataKeyError         = metadatapkg.KeyError
	MetadataKeySourceTopic   = metadatapkg.KeySourceTopic
	MetadataKeyModule        = metadatapkg.KeyModule

	// EnvConfigPath names the environment variable holding the config
	// file path read by LoadConfig.
	EnvConfigPath = configpkg.EnvConfigPath
)

// RegisterModule makes a stateful module constructible by name through the
// default registry.
func RegisterModule(name string, factory ModuleFactory) {
	modulespkg.DefaultRegistry.Register(name, factory)
}

// RegisterFunction registers a stateless function under the given name.
func RegisterFunction(name string, fn Function) {
	modulespkg.DefaultRegistry.RegisterFunction(name, fn)
}

// Run loads the configuration from the environment, builds a service for
// it, and blocks until the context is cancelled or the service stops. It
// is the main entry point for function processes:
//
//	funcstream.RegisterFunction("greet", greet)
//	if err := funcstream.Run(context.Background()); err != nil {
//		log.Fatal(err)
//	}
func Run(ctx context.Context) error {
	conf, err := LoadConfig()
	if err != nil {
		return err
	}
	return RunWithConfig(ctx, conf)
}

// RunWithConfig is Run with an already loaded configuration.
func RunWithConfig(ctx context.Context, conf *Config) error {
	logger := loggingpkg.NewSlogServiceLogger(slog.Default())
	svc, err := NewService(conf, logger, ctx, Dependencies{})
	if err != nil {
		return err
	}
	return svc.Start(ctx)
}
