package location

import "math"

const earthRadiusMeters = 6371000.0

// Coordinates is one geographic point in decimal degrees.
// Params: latitude and longitude.
// Returns: value used for region centers and device positions.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Region is one circular geofence registered with the location capability.
// Params: identifier (message hash), center point, and radius in meters.
// Returns: monitored region descriptor.
type Region struct {
	Identifier string
	Center     Coordinates
	Radius     float64
}

// Contains reports whether a point lies inside the region.
// Params: candidate point.
// Returns: true when great-circle distance to center is within radius.
func (r Region) Contains(point Coordinates) bool {
	return Distance(r.Center, point) <= r.Radius
}

// Provider is the platform location capability consumed by the region monitor.
// Params: monitoring lifecycle, location queries, and authorization requests.
// Returns: narrow boundary over the platform geofencing primitives.
type Provider interface {
	// MonitoringAvailable reports whether region monitoring is supported.
	MonitoringAvailable() bool
	// CurrentLocation returns the last known device position.
	CurrentLocation() (Coordinates, bool)
	// StartMonitoring registers one region for entry callbacks.
	StartMonitoring(region Region) error
	// StopMonitoring deregisters one region by identifier; idempotent.
	StopMonitoring(identifier string) error
	// StartLocationUpdates enables continuous location updates.
	StartLocationUpdates()
	// StopLocationUpdates disables continuous location updates.
	StopLocationUpdates()
	// RequestForegroundAccess asks for when-in-use location authorization.
	RequestForegroundAccess()
	// RequestBackgroundAccess asks for always-on location authorization.
	RequestBackgroundAccess()
}

// Distance computes the great-circle distance between two points.
// Params: two coordinates in decimal degrees.
// Returns: haversine distance in meters.
func Distance(a, b Coordinates) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
