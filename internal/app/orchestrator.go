package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geopush/internal/api"
	"geopush/internal/clock"
	"geopush/internal/config"
	"geopush/internal/dispatch"
	"geopush/internal/interaction"
	"geopush/internal/location"
	"geopush/internal/monitor"
	"geopush/internal/present"
	"geopush/internal/registry"
)

// ErrNoToken indicates a registration attempt before any token was set.
var ErrNoToken = errors.New("no device token set")

// TokenRegistrar registers device tokens with the backend.
// Params: context, token, and optional contact binding.
// Returns: registration error.
type TokenRegistrar interface {
	RegisterToken(ctx context.Context, token string, twoSteps *api.TwoStepsData) error
}

// Backend is the full backend surface the orchestrator depends on.
// Params: token registration and interaction telemetry.
// Returns: boundary implemented by the API client.
type Backend interface {
	TokenRegistrar
	interaction.EventReporter
}

// PositionUpdater accepts device position updates.
// Params: new coordinates.
// Returns: position applied.
type PositionUpdater interface {
	UpdatePosition(point location.Coordinates)
}

// Orchestrator composes the delivery pipeline and owns token state.
// Params: config snapshot and boundary implementations.
// Returns: runtime facade exposed to ingest interfaces.
type Orchestrator struct {
	cfg       config.Config
	logger    *slog.Logger
	clk       clock.Clock
	registry  *registry.PendingRegistry
	dispatch  *dispatch.Dispatcher
	monitor   *monitor.Monitor
	router    *interaction.Router
	registrar TokenRegistrar
	presenter present.Presenter
	provider  location.Provider
	updater   PositionUpdater

	mu         sync.Mutex
	token      string
	registered bool
	twoSteps   *api.TwoStepsData
}

// Options carries optional orchestrator boundaries.
// Params: link opener, dialog prompter, deep-link callback, and position updater.
// Returns: nil fields disable the corresponding behavior.
type Options struct {
	Opener   present.LinkOpener
	Prompter interaction.Prompter
	DeepLink interaction.DeepLinkFunc
	Updater  PositionUpdater
}

// NewOrchestrator wires the delivery pipeline.
// Params: config, backend reporter/registrar, presenter, location provider, options, clock, and logger.
// Returns: initialized orchestrator.
func NewOrchestrator(
	cfg config.Config,
	backend Backend,
	presenter present.Presenter,
	provider location.Provider,
	opts Options,
	clk clock.Clock,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New(clk.Now)
	imageTimeout := time.Duration(cfg.Present.ImageTimeoutSec) * time.Second
	dispatcher := dispatch.New(reg, presenter, clk, cfg.Geo.IsEnabled(), imageTimeout, logger)
	mon := monitor.New(provider, clk, dispatcher.FireNow, reg.Remove, logger)
	dispatcher.SetArmer(mon)
	router := interaction.NewRouter(reg, backend, presenter, dispatcher, opts.Opener, opts.Prompter, opts.DeepLink, logger)

	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		clk:       clk,
		registry:  reg,
		dispatch:  dispatcher,
		monitor:   mon,
		router:    router,
		registrar: backend,
		presenter: presenter,
		provider:  provider,
		updater:   opts.Updater,
	}
}

// HandlePayload routes one raw push payload.
// Params: context and raw JSON payload.
// Returns: decode error for malformed payloads.
func (o *Orchestrator) HandlePayload(ctx context.Context, raw []byte) error {
	return o.dispatch.HandlePayload(ctx, raw)
}

// HandleInteraction routes one user interaction.
// Params: context and interaction.
// Returns: routing error.
func (o *Orchestrator) HandleInteraction(ctx context.Context, in interaction.Interaction) error {
	return o.router.HandleInteraction(ctx, in)
}

// HandleRegionEntry processes one region-entry signal.
// Params: region identifier (message hash).
// Returns: entry forwarded to the region monitor.
func (o *Orchestrator) HandleRegionEntry(identifier string) {
	o.monitor.HandleRegionEntry(identifier)
}

// UpdateLocation applies one device position update.
// Params: context (unused) and decimal-degree coordinates.
// Returns: error when no position updater is wired.
func (o *Orchestrator) UpdateLocation(ctx context.Context, latitude, longitude float64) error {
	if o.updater == nil {
		return errors.New("no position updater configured")
	}
	o.updater.UpdatePosition(location.Coordinates{Latitude: latitude, Longitude: longitude})
	return nil
}

// SetToken stores a new device token and re-registers on rotation.
// Params: context and device token.
// Returns: re-registration error when an already registered token rotates.
func (o *Orchestrator) SetToken(ctx context.Context, token string) error {
	o.mu.Lock()
	if token == o.token {
		o.mu.Unlock()
		return nil
	}
	o.token = token
	registered := o.registered
	twoSteps := o.twoSteps
	o.mu.Unlock()

	if !registered {
		return nil
	}
	if err := o.registrar.RegisterToken(ctx, token, twoSteps); err != nil {
		o.logger.Error("token re-registration failed", "error", err)
		return fmt.Errorf("re-register rotated token: %w", err)
	}
	o.logger.Info("rotated token re-registered")
	return nil
}

// RegisterToken registers the current token with the backend.
// Params: context and optional contact field/value binding.
// Returns: ErrNoToken or registration error.
func (o *Orchestrator) RegisterToken(ctx context.Context, field, value string) error {
	o.mu.Lock()
	token := o.token
	o.mu.Unlock()
	if token == "" {
		return ErrNoToken
	}

	var twoSteps *api.TwoStepsData
	if field != "" && value != "" {
		twoSteps = &api.TwoStepsData{Field: field, Value: value}
	}
	if err := o.registrar.RegisterToken(ctx, token, twoSteps); err != nil {
		return fmt.Errorf("register token: %w", err)
	}

	o.mu.Lock()
	o.registered = true
	if twoSteps != nil {
		o.twoSteps = twoSteps
	}
	o.mu.Unlock()
	o.logger.Info("device token registered")
	return nil
}

// RequestPermission asks the presentation surface for notification authorization.
// Params: context.
// Returns: grant flag and permission error.
func (o *Orchestrator) RequestPermission(ctx context.Context) (bool, error) {
	return o.presenter.RequestPermission(ctx)
}

// RequestLocationAccess asks the location capability for authorization.
// Params: background selects always-on over when-in-use access.
// Returns: request forwarded to the provider.
func (o *Orchestrator) RequestLocationAccess(background bool) {
	if background {
		o.provider.RequestBackgroundAccess()
		return
	}
	o.provider.RequestForegroundAccess()
}

// Tick runs one maintenance sweep over categories and pending entries.
// Params: context (unused).
// Returns: always nil; eviction counts are logged.
func (o *Orchestrator) Tick(ctx context.Context) error {
	now := o.clk.Now()
	categoryTTL := time.Duration(o.cfg.Service.CategoryTTLHours) * time.Hour
	pendingTTL := time.Duration(o.cfg.Service.PendingTTLHours) * time.Hour

	categories := o.dispatch.CompactCategories(now, categoryTTL)
	pending := o.registry.Compact(now, pendingTTL)
	if categories > 0 || pending > 0 {
		o.logger.Info("maintenance sweep", "categories_evicted", categories, "pending_evicted", pending)
	}
	return nil
}

// Shutdown disarms all monitored regions.
// Params: none.
// Returns: monitor quiesced.
func (o *Orchestrator) Shutdown() {
	o.monitor.Shutdown()
}
