package ambient

import (
	"errors"
	"log"
	"time"

	"github.com/relabs-tech/sat_clock/internal/env"
)

// ErrTimeout is returned by a LightSensor whose measurement did not become
// ready within the caller's deadline.
var ErrTimeout = errors.New("ambient: measurement timeout")

// LightSensor delivers one illuminance reading in lux. Measure must return
// within the given timeout, reporting ErrTimeout if the conversion was not
// ready in time.
type LightSensor interface {
	Measure(timeout time.Duration) (float64, error)
}

// ClimateSensor delivers one temperature/humidity/pressure reading.
type ClimateSensor interface {
	Read() (env.Sample, error)
}

// Sampler polls the two ambient sensors on independent cadences and keeps
// the shared State current. It runs entirely in the secondary context.
type Sampler struct {
	light   LightSensor
	climate ClimateSensor
	state   *State

	darkThreshold float64
	luxTimeout    time.Duration

	lastLux float64
}

func NewSampler(light LightSensor, climate ClimateSensor, state *State, darkThreshold float64, luxTimeout time.Duration) *Sampler {
	return &Sampler{
		light:         light,
		climate:       climate,
		state:         state,
		darkThreshold: darkThreshold,
		luxTimeout:    luxTimeout,
	}
}

// SampleLight takes one illuminance reading, classifies darkness, and
// publishes both to the shared state. A timed-out or failed read reuses
// the previous value: a missing sample for one 4 s interval is harmless,
// blocking the loop is not. Returns the lux value in effect.
func (s *Sampler) SampleLight() float64 {
	if s.light != nil {
		lux, err := s.light.Measure(s.luxTimeout)
		switch {
		case err == nil:
			s.lastLux = lux
		case errors.Is(err, ErrTimeout):
			log.Printf("sampler: lux measurement timed out, reusing %.1f lx", s.lastLux)
		default:
			log.Printf("sampler: lux read error: %v", err)
		}
	}

	s.state.setLight(s.lastLux, s.lastLux <= s.darkThreshold)
	return s.lastLux
}

// SampleClimate takes one temperature/humidity/pressure reading unless the
// display is currently blanked for darkness, in which case the read is
// skipped outright: nobody can see the numbers and the sensor I/O costs
// power.
func (s *Sampler) SampleClimate(offInDark bool) {
	if s.climate == nil {
		return
	}
	if offInDark && s.state.Dark() {
		return
	}

	sample, err := s.climate.Read()
	if err != nil {
		log.Printf("sampler: climate read error: %v", err)
		return
	}
	s.state.setClimate(sample)
}
