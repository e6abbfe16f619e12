package gps

import "time"

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
// Date/time fields are UTC as reported by the receiver.
type Fix struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`

	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	Altitude   float64 `json:"altitude_m"`  // above mean sea level
	Satellites int     `json:"satellites"`  // satellites in use
	HDOP       float64 `json:"hdop"`        // horizontal dilution of precision

	// Received is the instant the closing sentence was parsed. The fix is
	// only trusted while it is fresh; see Age.
	Received time.Time `json:"-"`
}

// Age reports how long ago this fix was decoded.
func (f Fix) Age() time.Duration {
	return time.Since(f.Received)
}

// Usable reports whether the fix quality clears the given gates. A zero
// satellite count (no GGA seen yet) never qualifies.
func (f Fix) Usable(minSatellites int, maxHDOP float64) bool {
	if f.Satellites < minSatellites || f.Satellites == 0 {
		return false
	}
	return f.HDOP > 0 && f.HDOP <= maxHDOP
}
