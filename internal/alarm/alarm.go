// Package alarm implements the minute-boundary chime: a short beep pattern
// on the hour and optionally on the half hour.
package alarm

// Sounder plays an audible beep pattern on the buzzer. Volume is an 8-bit
// PWM duty. Implementations may block for the duration of the pattern; the
// scheduler is called from the secondary context where that is acceptable.
type Sounder interface {
	Beep(count int, volume uint8)
}

// Beep counts distinguish the two chimes by ear.
const (
	hourlyBeeps     = 2
	halfHourlyBeeps = 1
)

// syncedYearFloor mirrors the timebase guard: a year below this means the
// clock has never been set and minute values are meaningless, so no chime
// may fire.
const syncedYearFloor = 2020

// Config is the per-tick snapshot of the user settings the scheduler
// honors. The caller reads these from the settings store each tick so a
// menu change takes effect within one tick.
type Config struct {
	Hourly     bool
	HalfHourly bool
	MuteInDark bool
	Volume     uint8
}

// Scheduler fires at most once per qualifying minute, latched via
// triggeredThisMinute and released as soon as the minute no longer matches
// either trigger value.
type Scheduler struct {
	sounder             Sounder
	triggeredThisMinute bool
}

func NewScheduler(sounder Sounder) *Scheduler {
	return &Scheduler{sounder: sounder}
}

// Tick evaluates the alarm condition against the current local time.
// Called every ~50 ms; minute-boundary events need no finer resolution.
// Returns true when a chime was fired this tick.
func (s *Scheduler) Tick(minute, year int, dark bool, cfg Config) bool {
	hourlyMatch := minute == 0 && cfg.Hourly
	halfMatch := minute == 30 && cfg.HalfHourly

	if !hourlyMatch && !halfMatch {
		s.triggeredThisMinute = false
		return false
	}
	if s.triggeredThisMinute {
		return false
	}
	if year < syncedYearFloor {
		// Clock not yet synchronized; stay latched off but do not mark
		// the minute as triggered, a fix may still arrive within it.
		return false
	}
	if dark && cfg.MuteInDark {
		return false
	}

	s.triggeredThisMinute = true
	if hourlyMatch {
		s.sounder.Beep(hourlyBeeps, cfg.Volume)
	} else {
		s.sounder.Beep(halfHourlyBeeps, cfg.Volume)
	}
	return true
}
