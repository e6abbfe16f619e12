// Package app wires the clock together and runs its two execution
// contexts: the primary context decodes fixes, keeps the time base and the
// display current and supervises power mode; the secondary context samples
// the environment, smooths the backlight and schedules chimes. The two
// share only word-sized atomics, each written by exactly one side.
package app

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/relabs-tech/sat_clock/internal/alarm"
	"github.com/relabs-tech/sat_clock/internal/ambient"
	"github.com/relabs-tech/sat_clock/internal/config"
	"github.com/relabs-tech/sat_clock/internal/gps"
	"github.com/relabs-tech/sat_clock/internal/sensors"
	"github.com/relabs-tech/sat_clock/internal/settings"
	"github.com/relabs-tech/sat_clock/internal/timebase"
)

// ButtonInput polls for a front-button press with a bounded wait.
type ButtonInput interface {
	Poll(timeout time.Duration) (sensors.Button, bool)
}

// Options collects the collaborators assembled in main. Sensor and output
// fields may be nil when the hardware probe failed at boot; the clock then
// runs degraded.
type Options struct {
	Config    *config.Config
	Store     *settings.Store
	Screen    *Screen
	Light     ambient.LightSensor
	Climate   ambient.ClimateSensor
	Backlight ambient.Backlight
	Sounder   alarm.Sounder
	Buttons   ButtonInput
	Telemetry *Telemetry
}

// Clock is the appliance.
type Clock struct {
	cfg       *config.Config
	store     *settings.Store
	screen    *Screen
	buttons   ButtonInput
	telemetry *Telemetry

	tb      *timebase.TimeBase
	state   *ambient.State
	sampler *ambient.Sampler
	bright  *ambient.Brightness
	alarms  *alarm.Scheduler
	decoder *gps.Decoder

	// menuOpen and updating are the only flags shared across contexts
	// and with the web server.
	menuOpen atomic.Bool
	updating atomic.Bool

	fixMu   sync.RWMutex
	lastFix gps.Fix

	stop chan struct{}
}

func New(opts Options) *Clock {
	cfg := opts.Config

	backlight := opts.Backlight
	if backlight == nil {
		backlight = nopBacklight{}
	}
	sounder := opts.Sounder
	if sounder == nil {
		sounder = nopSounder{}
	}

	state := &ambient.State{}
	c := &Clock{
		cfg:       cfg,
		store:     opts.Store,
		screen:    opts.Screen,
		buttons:   opts.Buttons,
		telemetry: opts.Telemetry,
		tb:        timebase.New(cfg.TimezoneOffsetSeconds),
		state:     state,
		sampler: ambient.NewSampler(opts.Light, opts.Climate, state,
			cfg.LuxDarkThreshold, time.Duration(cfg.LuxTimeout)*time.Millisecond),
		bright: ambient.NewBrightness(ambient.BrightnessConfig{
			LuxMin:  cfg.BrightLuxMin,
			LuxMax:  cfg.BrightLuxMax,
			DutyMin: cfg.BrightDutyMin,
			DutyMax: cfg.BrightDutyMax,
			Alpha:   cfg.BrightAlpha,
		}, backlight),
		alarms:  alarm.NewScheduler(sounder),
		decoder: gps.NewDecoder(),
		stop:    make(chan struct{}),
	}
	return c
}

// Stop requests a cooperative shutdown of both contexts.
func (c *Clock) Stop() {
	close(c.stop)
}

func (c *Clock) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

func (c *Clock) setLastFix(f gps.Fix) {
	c.fixMu.Lock()
	c.lastFix = f
	c.fixMu.Unlock()
}

// LastFix returns the most recent decoded fix (web/status surface).
func (c *Clock) LastFix() gps.Fix {
	c.fixMu.RLock()
	defer c.fixMu.RUnlock()
	return c.lastFix
}

// ErrorCountdown shows the blocking boot error screen for the given number
// of seconds, then returns so the caller can continue degraded. With no
// display available the message only goes to the log.
func ErrorCountdown(screen *Screen, msg string, seconds int) {
	log.Printf("boot error: %s (continuing in %ds)", msg, seconds)
	if screen == nil {
		time.Sleep(time.Duration(seconds) * time.Second)
		return
	}
	for i := seconds; i > 0; i-- {
		if err := screen.ShowError(msg, i); err != nil {
			log.Printf("error screen: %v", err)
		}
		time.Sleep(time.Second)
	}
}

// restart re-executes the firmware binary after a visible countdown. Used
// by factory reset and by a completed firmware update to force clean
// re-initialization with the new settings or image.
func (c *Clock) restart(title string) {
	log.Printf("restart requested: %s", title)
	for i := 3; i > 0; i-- {
		if c.screen != nil {
			if err := c.screen.ShowCountdown(title, i); err != nil {
				log.Printf("countdown screen: %v", err)
			}
		}
		time.Sleep(time.Second)
	}

	exe, err := os.Executable()
	if err != nil {
		log.Fatalf("restart: cannot resolve executable: %v", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Fatalf("restart: exec failed: %v", err)
	}
}

// nopBacklight stands in when the backlight output failed to initialize.
type nopBacklight struct{}

func (nopBacklight) SetDuty(uint8) error { return nil }

// nopSounder stands in when the buzzer failed to initialize.
type nopSounder struct{}

func (nopSounder) Beep(int, uint8) {}
