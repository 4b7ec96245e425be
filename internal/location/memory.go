package location

import "sync"

// MemoryProvider is an in-process location capability fed by position updates.
// Params: entry callback invoked when an update lands inside a monitored region.
// Returns: provider used by headless deployments and tests.
type MemoryProvider struct {
	mu            sync.Mutex
	available     bool
	current       Coordinates
	hasCurrent    bool
	regions       map[string]Region
	updatesActive bool
	onEntry       func(identifier string)
}

// NewMemoryProvider creates an available in-memory provider.
// Params: none.
// Returns: initialized provider without a known position.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		available: true,
		regions:   make(map[string]Region),
	}
}

// SetEntryHandler binds the region-entry callback.
// Params: callback receiving the entered region identifier.
// Returns: callback bound for subsequent position updates.
func (p *MemoryProvider) SetEntryHandler(onEntry func(identifier string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEntry = onEntry
}

// SetAvailable toggles monitoring availability.
// Params: availability flag.
// Returns: flag applied.
func (p *MemoryProvider) SetAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = available
}

// UpdatePosition records a new device position and reports region entries.
// Params: new coordinates.
// Returns: entry callback invoked for every monitored region containing the point.
func (p *MemoryProvider) UpdatePosition(point Coordinates) {
	p.mu.Lock()
	p.current = point
	p.hasCurrent = true
	onEntry := p.onEntry
	var entered []string
	if p.updatesActive && onEntry != nil {
		for identifier, region := range p.regions {
			if region.Contains(point) {
				entered = append(entered, identifier)
			}
		}
	}
	p.mu.Unlock()

	for _, identifier := range entered {
		onEntry(identifier)
	}
}

// MonitoringAvailable reports whether region monitoring is supported.
// Params: none.
// Returns: configured availability flag.
func (p *MemoryProvider) MonitoringAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// CurrentLocation returns the last known device position.
// Params: none.
// Returns: coordinates and knowledge flag.
func (p *MemoryProvider) CurrentLocation() (Coordinates, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.hasCurrent
}

// StartMonitoring registers one region for entry callbacks.
// Params: region to monitor.
// Returns: always nil.
func (p *MemoryProvider) StartMonitoring(region Region) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions[region.Identifier] = region
	return nil
}

// StopMonitoring deregisters one region by identifier; idempotent.
// Params: region identifier.
// Returns: always nil.
func (p *MemoryProvider) StopMonitoring(identifier string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.regions, identifier)
	return nil
}

// StartLocationUpdates enables continuous position tracking.
// Params: none.
// Returns: updates flagged active.
func (p *MemoryProvider) StartLocationUpdates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updatesActive = true
}

// StopLocationUpdates disables continuous position tracking.
// Params: none.
// Returns: updates flagged inactive.
func (p *MemoryProvider) StopLocationUpdates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updatesActive = false
}

// RequestForegroundAccess is a no-op for the in-memory provider.
func (p *MemoryProvider) RequestForegroundAccess() {}

// RequestBackgroundAccess is a no-op for the in-memory provider.
func (p *MemoryProvider) RequestBackgroundAccess() {}
