// Package ambient owns everything the clock knows about its surroundings:
// illuminance and climate sampling, the darkness classification, and the
// smoothed backlight controller.
package ambient

import (
	"math"
	"sync/atomic"

	"github.com/relabs-tech/sat_clock/internal/env"
)

// State is the cross-context ambient snapshot. Every field is a single
// word written by exactly one context (the secondary sampling loop) and
// read by the other, so atomic loads/stores are all the discipline needed;
// readers tolerate one polling interval of staleness.
type State struct {
	lux      atomicFloat64
	dark     atomic.Bool
	duty     atomic.Int32
	temp     atomicFloat64
	humidity atomicFloat64
	pressure atomicFloat64
}

// atomicFloat64 stores a float64 via its bit pattern.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }
func (a *atomicFloat64) Load() float64   { return math.Float64frombits(a.bits.Load()) }

// Lux returns the most recent illuminance sample.
func (s *State) Lux() float64 { return s.lux.Load() }

// Dark reports whether ambient light is classified as dark.
func (s *State) Dark() bool { return s.dark.Load() }

// Duty returns the backlight duty most recently written to hardware.
func (s *State) Duty() int { return int(s.duty.Load()) }

// Climate returns the latest environmental sample.
func (s *State) Climate() env.Sample {
	return env.Sample{
		Temperature: s.temp.Load(),
		Humidity:    s.humidity.Load(),
		Pressure:    s.pressure.Load(),
	}
}

func (s *State) setLight(lux float64, dark bool) {
	s.lux.Store(lux)
	s.dark.Store(dark)
}

func (s *State) setClimate(sample env.Sample) {
	s.temp.Store(sample.Temperature)
	s.humidity.Store(sample.Humidity)
	s.pressure.Store(sample.Pressure)
}

// SetDuty records the duty just written to hardware. Called only from the
// secondary context, which owns every writable field of State.
func (s *State) SetDuty(d int) { s.duty.Store(int32(d)) }
