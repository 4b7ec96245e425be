package monitor

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"geopush/internal/clock"
	"geopush/internal/domain"
	"geopush/internal/location"
	"geopush/internal/period"
)

// ErrMonitoringUnavailable indicates the location capability cannot monitor regions.
var ErrMonitoringUnavailable = errors.New("region monitoring unavailable")

// FireFunc delivers one message whose geofence condition was satisfied.
// Params: message to surface.
// Returns: invoked outside monitor locks.
type FireFunc func(message domain.Message)

// ExpireFunc reports one message whose region lifetime elapsed without entry.
// Params: message hash.
// Returns: invoked outside monitor locks.
type ExpireFunc func(hash string)

// Monitor tracks active geofence regions and their expiry timers.
// Params: location provider, clock, delivery callbacks, and logger.
// Returns: serialized region lifecycle; one region per message hash.
type Monitor struct {
	mu       sync.Mutex
	provider location.Provider
	clk      clock.Clock
	fire     FireFunc
	expire   ExpireFunc
	logger   *slog.Logger
	regions  map[string]*monitoredRegion
}

type monitoredRegion struct {
	message domain.Message
	region  location.Region
	timer   clock.Timer
}

// New creates a region monitor.
// Params: location provider, clock, fire/expire callbacks, and logger.
// Returns: initialized monitor with no active regions.
func New(provider location.Provider, clk clock.Clock, fire FireFunc, expire ExpireFunc, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		provider: provider,
		clk:      clk,
		fire:     fire,
		expire:   expire,
		logger:   logger,
		regions:  make(map[string]*monitoredRegion),
	}
}

// RequestMonitor arms one geofence for a geo message.
// Params: decoded geo message.
// Returns: ErrMonitoringUnavailable when the capability is missing; nil otherwise.
// A device already inside the region delivers immediately without arming.
func (m *Monitor) RequestMonitor(message domain.Message) error {
	if !m.provider.MonitoringAvailable() {
		return ErrMonitoringUnavailable
	}

	hash := message.Data.MessageHash
	region := location.Region{
		Identifier: hash,
		Center: location.Coordinates{
			Latitude:  message.Data.Geo.Latitude,
			Longitude: message.Data.Geo.Longitude,
		},
		Radius: message.Data.Geo.Radius,
	}

	// Fast path: already inside the region. The daily window is only
	// checked on asynchronous entry.
	if current, ok := m.provider.CurrentLocation(); ok && region.Contains(current) {
		m.logger.Info("device already inside region", "hash", hash)
		m.fire(message)
		return nil
	}

	m.mu.Lock()
	if existing, ok := m.regions[hash]; ok {
		m.dropLocked(hash, existing)
	}
	startUpdates := len(m.regions) == 0

	entry := &monitoredRegion{message: message, region: region}
	if seconds := message.Data.Geo.DurationMS / 1000; seconds > 0 {
		entry.timer = m.clk.AfterFunc(time.Duration(seconds)*time.Second, func() {
			m.handleExpiry(hash)
		})
	}
	m.regions[hash] = entry
	m.mu.Unlock()

	if err := m.provider.StartMonitoring(region); err != nil {
		m.mu.Lock()
		if current, ok := m.regions[hash]; ok && current == entry {
			m.dropLocked(hash, current)
		}
		m.mu.Unlock()
		return err
	}
	if startUpdates {
		m.provider.StartLocationUpdates()
	}
	m.logger.Info("region armed", "hash", hash, "radius", region.Radius)
	return nil
}

// HandleRegionEntry processes a region-entry callback from the platform.
// Params: region identifier (message hash).
// Returns: message fired when inside its daily window; region kept armed otherwise.
func (m *Monitor) HandleRegionEntry(identifier string) {
	m.mu.Lock()
	entry, ok := m.regions[identifier]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("entry for unknown region", "hash", identifier)
		return
	}

	geo := entry.message.Data.Geo
	if !period.Within(geo.PeriodStart, geo.PeriodEnd, m.clk.Now()) {
		m.mu.Unlock()
		m.logger.Info("entry outside daily window, region kept", "hash", identifier)
		return
	}

	m.dropLocked(identifier, entry)
	last := len(m.regions) == 0
	m.mu.Unlock()

	if last {
		m.provider.StopLocationUpdates()
	}
	m.fire(entry.message)
}

// Active reports whether a region is currently armed.
// Params: region identifier.
// Returns: true when the region is being monitored.
func (m *Monitor) Active(identifier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.regions[identifier]
	return ok
}

// Shutdown disarms all regions without firing or expiring.
// Params: none.
// Returns: all timers stopped and monitoring released.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	hadRegions := len(m.regions) > 0
	for hash, entry := range m.regions {
		m.dropLocked(hash, entry)
	}
	m.mu.Unlock()

	if hadRegions {
		m.provider.StopLocationUpdates()
	}
}

// handleExpiry retires a region whose lifetime elapsed without entry.
// Params: region identifier.
// Returns: region disarmed and expiry reported; never fires the message.
func (m *Monitor) handleExpiry(identifier string) {
	m.mu.Lock()
	entry, ok := m.regions[identifier]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.dropLocked(identifier, entry)
	last := len(m.regions) == 0
	m.mu.Unlock()

	if last {
		m.provider.StopLocationUpdates()
	}
	m.logger.Info("region expired", "hash", identifier)
	if m.expire != nil {
		m.expire(identifier)
	}
}

// dropLocked removes one region entry; caller holds the mutex.
// Params: identifier and its entry.
// Returns: timer stopped and platform monitoring released.
func (m *Monitor) dropLocked(identifier string, entry *monitoredRegion) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if err := m.provider.StopMonitoring(identifier); err != nil {
		m.logger.Warn("stop monitoring failed", "hash", identifier, "error", err)
	}
	delete(m.regions, identifier)
}
