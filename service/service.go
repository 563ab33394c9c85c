package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/cache"
	"github.com/strada-framework/strada/config"
	"github.com/strada-framework/strada/dispatch"
	"github.com/strada-framework/strada/logger"
	"github.com/strada-framework/strada/metrics"
	"github.com/strada-framework/strada/middleware"
	"github.com/strada-framework/strada/router"
	"github.com/strada-framework/strada/server"
	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/validation"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Service is the composition root: it builds config, logger, cache, metrics
// and the middleware chain from one YAML file, loads the declared routes into
// a trie and serves them. Routes and extra middleware are registered between
// New and Start.
type Service struct {
	ctx          context.Context
	cancel       context.CancelFunc
	config       types.ConfigManager
	logger       types.Logger
	cacheManager types.CacheManager
	metrics      types.MetricsManager
	registry     *middleware.Registry
	declarations []types.Declaration
	httpServer   *server.FastHTTPServer
	done         chan struct{}
	wg           sync.WaitGroup
	state        atomic.Value
}

func NewService(ctx context.Context, configPath string) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	configManager, err := config.NewConfigurationManager(serviceCtx, configPath)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to build config manager")
	}

	return newService(serviceCtx, cancel, configManager)
}

// NewServiceWithConfig skips the filesystem and builds from an in-memory
// config, for tests and embedders.
func NewServiceWithConfig(ctx context.Context, cfg *types.ServiceConfig) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)
	return newService(serviceCtx, cancel, config.NewStaticManager(cfg))
}

func newService(ctx context.Context, cancel context.CancelFunc, configManager types.ConfigManager) (*Service, error) {
	cfg := configManager.GetConfig()

	log, err := logger.NewDefaultLogger(cfg.Logger)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to build logger")
	}

	s := &Service{
		ctx:      ctx,
		cancel:   cancel,
		config:   configManager,
		logger:   log,
		registry: middleware.NewRegistry(log),
		done:     make(chan struct{}),
	}
	s.state.Store(StateStopped)

	if cfg.Cache != nil && cfg.Cache.Enabled {
		cacheManager, err := cache.NewCacheManager(ctx, configManager, log)
		if err != nil {
			cancel()
			return nil, types.WrapError(err, "failed to build cache manager")
		}
		s.cacheManager = cacheManager
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsManager, err := metrics.NewMetricsManager(ctx, configManager, log)
		if err != nil {
			cancel()
			return nil, types.WrapError(err, "failed to build metrics manager")
		}
		s.metrics = metricsManager
	}

	return s, nil
}

// AddRoute queues a route declaration for loading at Start.
func (s *Service) AddRoute(decl types.Declaration) {
	s.declarations = append(s.declarations, decl)
}

func (s *Service) AddRoutes(decls []types.Declaration) {
	s.declarations = append(s.declarations, decls...)
}

// Use registers an extra global middleware alongside the config-driven ones.
func (s *Service) Use(mw types.Middleware) error {
	return s.registry.Register(mw)
}

func (s *Service) Logger() types.Logger          { return s.logger }
func (s *Service) Config() types.ConfigManager   { return s.config }
func (s *Service) Cache() types.CacheManager     { return s.cacheManager }
func (s *Service) Metrics() types.MetricsManager { return s.metrics }
func (s *Service) Context() context.Context      { return s.ctx }
func (s *Service) Done() <-chan struct{}         { return s.done }

// Start brings every component up, then blocks until Stop is called or a
// shutdown signal arrives.
func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if err := s.startComponents(); err != nil {
		s.setState(StateStopped)
		return err
	}

	s.setState(StateRunning)
	s.setupSignalHandling()

	s.wg.Add(1)
	go s.contextMonitor()

	s.logger.Info("Service started",
		zap.String("name", s.config.GetConfig().Name),
		zap.String("version", s.config.GetConfig().Version))

	<-s.done

	s.stopComponents()
	s.wg.Wait()
	s.setState(StateStopped)

	s.logger.Info("Service stopped gracefully")
	return nil
}

func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}
	s.cancel()
	return nil
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) startComponents() error {
	cfg := s.config.GetConfig()

	if s.cacheManager != nil {
		if err := s.cacheManager.Start(); err != nil {
			return types.WrapError(err, "failed to start cache manager")
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Start(); err != nil {
			s.logger.Error("Failed to start metrics manager", zap.Error(err))
		}
	}

	if err := s.registry.RegisterFromConfig(s.ctx, s.config, s.cacheManager, s.metrics); err != nil {
		return types.WrapError(err, "failed to build middleware chain")
	}

	trie, err := router.NewRegistrar(s.logger).Load(s.declarations)
	if err != nil {
		return err
	}

	dispatcher, err := dispatch.NewDispatcher(
		dispatch.Config{Debug: cfg.Debug},
		s.logger,
		trie,
		s.registry.Entries(),
		validation.NewEngine(),
	)
	if err != nil {
		return err
	}

	httpServer, err := server.NewHTTPServer(s.ctx, s.config, s.logger, dispatcher)
	if err != nil {
		return err
	}
	s.httpServer = httpServer

	if err := httpServer.Start(); err != nil {
		return types.WrapError(err, "failed to start http server")
	}

	return nil
}

func (s *Service) stopComponents() {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(); err != nil {
			s.logger.Error("Failed to stop http server", zap.Error(err))
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Stop(); err != nil {
			s.logger.Error("Failed to stop metrics manager", zap.Error(err))
		}
	}

	if s.cacheManager != nil {
		if err := s.cacheManager.Stop(); err != nil {
			s.logger.Error("Failed to stop cache manager", zap.Error(err))
		}
	}
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

func (s *Service) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case sig := <-sigChan:
			s.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			if s.transitionState(StateRunning, StateStopping) {
				s.cancel()
			}
		case <-s.ctx.Done():
		}

		signal.Stop(sigChan)
	}()
}

func (s *Service) contextMonitor() {
	defer s.wg.Done()
	defer close(s.done)

	<-s.ctx.Done()

	switch err := s.ctx.Err(); {
	case types.IsError(err, context.Canceled):
		s.logger.Info("Service shutdown: context cancelled")
	case types.IsError(err, context.DeadlineExceeded):
		s.logger.Warn("Service shutdown: context deadline exceeded")
	}
}
