package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	configpkg "github.com/funcstream/funcstream/internal/runtime/config"
	"github.com/funcstream/funcstream/internal/runtime/correlation"
	errspkg "github.com/funcstream/funcstream/internal/runtime/errors"
	"github.com/funcstream/funcstream/internal/runtime/fscontext"
	loggingpkg "github.com/funcstream/funcstream/internal/runtime/logging"
	modulespkg "github.com/funcstream/funcstream/internal/runtime/modules"
	transportpkg "github.com/funcstream/funcstream/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// Dependencies holds the optional collaborators of a Service. Zero values
// fall back to the process-wide defaults.
type Dependencies struct {
	// Modules resolves the configured module name. Defaults to
	// modules.DefaultRegistry.
	Modules *modulespkg.Registry

	// Transports resolves the configured transport name. Defaults to
	// transport.DefaultRegistry.
	Transports *transportpkg.Registry

	// Middlewares are appended after the default middleware chain.
	Middlewares []MiddlewareRegistration

	// DisableDefaultMiddlewares skips the default chain when true.
	DisableDefaultMiddlewares bool
}

// Service hosts one module and routes messages between it and the broker.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	module  modulespkg.Module
	fc      *fscontext.Context
	tracker *correlation.Tracker

	state   atomic.Int32
	stopped chan struct{}

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpSrvs      []*http.Server
	httpServersMu sync.Mutex
}

// NewService constructs a Service for the supplied configuration. All
// failures here are fatal startup errors: nothing has been subscribed yet.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps Dependencies) (*Service, error) {
	if conf == nil {
		return nil, &errspkg.ConfigurationError{Err: fmt.Errorf("config is required")}
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, &errspkg.ConfigurationError{Err: err}
	}

	if log == nil {
		log = loggingpkg.Nop()
	}
	log.Info("Creating function service", loggingpkg.LogFields{
		"module":    conf.Module,
		"transport": conf.Transport,
		"config":    conf,
	})

	moduleRegistry := deps.Modules
	if moduleRegistry == nil {
		moduleRegistry = modulespkg.DefaultRegistry
	}
	mod, err := moduleRegistry.New(conf.Module)
	if err != nil {
		return nil, &errspkg.ConfigurationError{Err: err}
	}

	transportRegistry := deps.Transports
	if transportRegistry == nil {
		transportRegistry = transportpkg.DefaultRegistry
	}
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	transport, err := transportRegistry.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport %q: %w", conf.Transport, err)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: conf.CloseTimeout,
	}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddPlugin(plugin.SignalsHandler)

	s := &Service{
		Conf:       conf,
		Logger:     log,
		publisher:  transport.Publisher,
		subscriber: transport.Subscriber,
		router:     router,
		module:     modulespkg.Serialize(mod),
		fc:         fscontext.New(conf),
		tracker:    correlation.NewTracker(conf.RequestTimeout, log),
		stopped:    make(chan struct{}),
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	return s, nil
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Service) transition(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// Start initializes the module, opens the configured subscriptions, and
// runs the router until the context is cancelled or Drain is called. A
// module Init failure is fatal: no subscription is ever opened.
func (s *Service) Start(ctx context.Context) error {
	if !s.transition(StateIdle, StateInitializing) {
		return errspkg.ErrNotIdle
	}

	if err := s.module.Init(s.fc); err != nil {
		s.setState(StateStopped)
		s.tracker.Close()
		return &errspkg.InitializationError{Module: s.Conf.Module, Err: err}
	}

	if err := s.registerHandlers(); err != nil {
		s.setState(StateStopped)
		s.tracker.Close()
		return err
	}

	s.startHTTPServers()
	s.setState(StateRunning)
	go s.watchDraining(ctx)

	err := routerRun(s.router, ctx)

	s.setState(StateStopped)
	s.stopHTTPServers()
	s.tracker.Close()
	close(s.stopped)
	return err
}

// Running returns a channel that is closed once all subscriptions are open.
func (s *Service) Running() <-chan struct{} {
	return s.router.Running()
}

// Drain stops accepting new messages, lets in-flight invocations finish
// within the configured close timeout, and stops the service.
func (s *Service) Drain() error {
	s.transition(StateRunning, StateDraining)
	return s.router.Close()
}

func (s *Service) watchDraining(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.transition(StateRunning, StateDraining)
	case <-s.stopped:
	}
}

// Tracker exposes the correlation tracker, mainly for requesters sharing
// the service transport.
func (s *Service) Tracker() *correlation.Tracker {
	return s.tracker
}

func (s *Service) registerConfiguredMiddlewares(deps Dependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("register middleware %s: %w", name, err)
		}
	}
	return nil
}

// RegisterHTTPHandler mounts an HTTP handler on the mux served at port.
// Used by the metrics middleware; servers start together with the router.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}
		s.httpSrvs = append(s.httpSrvs, srv)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("HTTP server failed", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}(srv)
	}
}

// stopHTTPServers closes the HTTP servers started alongside the router so
// they do not outlive the stopped service.
func (s *Service) stopHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for _, srv := range s.httpSrvs {
		if err := srv.Close(); err != nil {
			s.Logger.Error("Closing HTTP server failed", err, loggingpkg.LogFields{"address": srv.Addr})
		}
	}
	s.httpSrvs = nil
}
