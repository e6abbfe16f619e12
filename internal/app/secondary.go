package app

import (
	"time"

	"github.com/relabs-tech/sat_clock/internal/alarm"
	"github.com/relabs-tech/sat_clock/internal/settings"
)

// RunSecondary is the secondary execution context: the ~20 ms animation
// tick advances the backlight smoothing, coarse counters trigger the lux
// (~4 s) and climate (~12 s) samples, and each ~50 ms the alarm condition
// is evaluated. Blocks until Stop.
func (c *Clock) RunSecondary() {
	animTick := time.NewTicker(time.Duration(c.cfg.AnimInterval) * time.Millisecond)
	defer animTick.Stop()

	luxEvery := time.Duration(c.cfg.LuxInterval) * time.Millisecond
	envEvery := time.Duration(c.cfg.EnvInterval) * time.Millisecond
	alarmEvery := time.Duration(c.cfg.AlarmInterval) * time.Millisecond

	// Fire the first samples immediately so the clock does not boot at
	// full brightness in a dark room.
	var lastLux, lastEnv, lastAlarm time.Time

	for {
		select {
		case <-c.stop:
			return
		case <-animTick.C:
		}

		now := time.Now()
		offInDark := c.store.Bool(settings.KeyOffInDark)

		if now.Sub(lastLux) >= luxEvery || lastLux.IsZero() {
			lastLux = now
			lux := c.sampler.SampleLight()

			if c.store.Bool(settings.KeyAutoBright) {
				c.bright.Retarget(lux)
			} else {
				c.bright.SetTarget(c.store.Int(settings.KeyBacklight))
			}

			c.telemetry.PublishStatus(c.status())
		}

		if now.Sub(lastEnv) >= envEvery || lastEnv.IsZero() {
			lastEnv = now
			c.sampler.SampleClimate(offInDark)
			c.telemetry.PublishEnv(c.state.Climate())
		}

		duty := c.bright.Tick(c.state.Dark(), offInDark, c.menuOpen.Load())
		c.state.SetDuty(duty)

		if now.Sub(lastAlarm) >= alarmEvery {
			lastAlarm = now
			c.alarms.Tick(c.tb.Minute(), c.tb.Year(), c.state.Dark(), alarm.Config{
				Hourly:     c.store.Bool(settings.KeyHourlyAlarm),
				HalfHourly: c.store.Bool(settings.KeyHalfHourlyAlarm),
				MuteInDark: c.store.Bool(settings.KeyMuteDark),
				Volume:     uint8(c.store.Int(settings.KeyBuzzerVolume)),
			})
		}
	}
}
