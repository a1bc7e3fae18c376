package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the Haversine formula.
const earthRadiusMeters = 6371000.0

// DefaultAccuracyThresholdMeters is the largest accuracy radius a device fix
// may report and still be trusted for geofence evaluation.
const DefaultAccuracyThresholdMeters = 50.0

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate can participate in distance math.
// The exact zero pair is treated as missing: it is what broken location
// providers emit, not a place students attend events.
func (c Coordinate) Valid() bool {
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Distance returns the great-circle distance between a and b in meters using
// the Haversine formula. ok is false when either coordinate is missing or out
// of range; the distance is then 0 and must never be read as "inside the
// fence". Callers decide how to degrade.
func Distance(a, b Coordinate) (meters float64, ok bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c, true
}

// Geofence is a circular boundary an attendee must be inside to be marked
// present.
type Geofence struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
	Address      string     `json:"address,omitempty"`
}

// Valid reports whether the fence is usable for enforcement.
func (g Geofence) Valid() bool {
	return g.Center.Valid() && g.RadiusMeters > 0
}

// WithinRadius reports whether p lies inside the fence, boundary inclusive,
// along with the computed distance from the center. ok mirrors Distance: a
// false ok means no verification was possible.
func (g Geofence) WithinRadius(p Coordinate) (within bool, meters float64, ok bool) {
	meters, ok = Distance(g.Center, p)
	if !ok {
		return false, 0, false
	}
	return meters <= g.RadiusMeters, meters, true
}

// Accurate reports whether a reported accuracy radius is tight enough to
// trust. Zero and negative accuracies are readings the device never produced,
// so they fail the check.
func Accurate(accuracyMeters, thresholdMeters float64) bool {
	if accuracyMeters <= 0 {
		return false
	}
	return accuracyMeters <= thresholdMeters
}
