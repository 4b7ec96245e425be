package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"geopush/internal/api"
	"geopush/internal/clock"
	"geopush/internal/config"
	"geopush/internal/ingest"
	"geopush/internal/location"
	"geopush/internal/logging"
	"geopush/internal/present"
)

// Service composes runtime dependencies and process lifecycle.
// Params: config source and shared runtime components.
// Returns: runnable delivery service.
type Service struct {
	cfg          config.Config
	logger       *slog.Logger
	closeLog     func()
	orchestrator *Orchestrator
	provider     *location.MemoryProvider
	httpSrv      *http.Server
	natsSub      interface{ Close() error }
	readyFlag    atomic.Bool
	clock        clock.Clock
}

// NewService builds a service instance from a config source.
// Params: config source and clock implementation.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk clock.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	presenter, err := buildPresenter(cfg.Present, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	provider := location.NewMemoryProvider()
	client := api.NewClient(cfg.API)
	orchestrator := NewOrchestrator(cfg, client, presenter, provider, Options{Updater: provider}, clk, logger)
	provider.SetEntryHandler(orchestrator.HandleRegionEntry)

	service := &Service{
		cfg:          cfg,
		logger:       logger,
		closeLog:     closeLog,
		orchestrator: orchestrator,
		provider:     provider,
		clock:        clk,
	}

	service.buildHTTPServer()
	if err := service.buildNATSSubscriber(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}

	return service, nil
}

// Run starts the service lifecycle and blocks until a shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	shutdownCtx, shutdownCancel := context.WithCancel(ctx)
	defer shutdownCancel()

	if granted, err := s.orchestrator.RequestPermission(ctx); err != nil {
		s.logger.Warn("notification permission check failed", "error", err.Error())
	} else if !granted {
		s.logger.Warn("notification permission not granted")
	}
	if s.cfg.Geo.IsEnabled() {
		s.orchestrator.RequestLocationAccess(true)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.Ingest.HTTP.Listen)
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sweepInterval := time.Duration(s.cfg.Service.SweepIntervalSec) * time.Second
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-shutdownCtx.Done():
				return
			case <-ticker.C:
				if err := s.orchestrator.Tick(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("maintenance sweep failed", "error", err.Error())
				}
			}
		}
	}()

	s.readyFlag.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		_ = s.shutdown()
		return fmt.Errorf("http server failed: %w", err)
	case <-sigChan:
		return s.shutdown()
	}
}

// shutdown closes runtime resources in dependency order.
// Params: none.
// Returns: first close error.
func (s *Service) shutdown() error {
	s.readyFlag.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err.Error())
		markErr(fmt.Errorf("http shutdown: %w", err))
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats subscriber close failed", "error", err.Error())
			markErr(fmt.Errorf("nats subscriber close: %w", err))
		}
	}
	s.orchestrator.Shutdown()
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
		s.httpSrv = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}

// buildHTTPServer wires the router with ingest and health endpoints.
// Params: none.
// Returns: http server stored on the service.
func (s *Service) buildHTTPServer() {
	httpCfg := s.cfg.Ingest.HTTP
	mux := http.NewServeMux()
	mux.HandleFunc(httpCfg.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	})
	mux.HandleFunc(httpCfg.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.readyFlag.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("not-ready"))
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ready"))
	})

	mux.Handle(httpCfg.PayloadPath, ingest.NewPayloadHandler(s.orchestrator, httpCfg.MaxBodyBytes))
	mux.Handle(httpCfg.InteractionPath, ingest.NewInteractionHandler(s.orchestrator, httpCfg.MaxBodyBytes))
	mux.Handle(httpCfg.LocationPath, ingest.NewLocationHandler(s.orchestrator, httpCfg.MaxBodyBytes))
	mux.Handle(httpCfg.TokenPath, ingest.NewTokenHandler(s.orchestrator, httpCfg.MaxBodyBytes))

	s.httpSrv = &http.Server{
		Addr:              httpCfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// buildNATSSubscriber starts NATS payload ingest when enabled.
// Params: none.
// Returns: initialization error.
func (s *Service) buildNATSSubscriber() error {
	if config.NormalizeServiceMode(s.cfg.Service.Mode) == config.ServiceModeSingle {
		return nil
	}
	if !s.cfg.Ingest.NATS.Enabled {
		return nil
	}
	subscriber, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.orchestrator, s.logger)
	if err != nil {
		return err
	}
	s.natsSub = subscriber
	return nil
}

// buildPresenter selects the presentation surface from config.
// Params: present config section and logger.
// Returns: presenter implementation or setup error.
func buildPresenter(cfg config.PresentConfig, logger *slog.Logger) (present.Presenter, error) {
	switch cfg.Mode {
	case config.PresentModeTelegram:
		return present.NewTelegramPresenter(cfg.Telegram), nil
	case config.PresentModeLog:
		return present.NewLogPresenter(logger), nil
	default:
		return nil, fmt.Errorf("unsupported present mode %q", cfg.Mode)
	}
}
