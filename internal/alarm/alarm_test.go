package alarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSounder struct {
	beeps   []int
	volumes []uint8
}

func (r *recordingSounder) Beep(count int, volume uint8) {
	r.beeps = append(r.beeps, count)
	r.volumes = append(r.volumes, volume)
}

func enabled() Config {
	return Config{Hourly: true, HalfHourly: true, MuteInDark: true, Volume: 128}
}

func TestFiresOncePerQualifyingMinute(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)

	// Sweep 29 → 30 → 31 with many ticks inside each minute.
	for _, minute := range []int{29, 30, 31} {
		for tick := 0; tick < 50; tick++ {
			s.Tick(minute, 2025, false, enabled())
		}
	}

	require.Equal(t, []int{1}, snd.beeps, "exactly one half-hourly chime at minute 30")
}

func TestHourlyBeepCountDiffers(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)

	s.Tick(0, 2025, false, enabled())
	s.Tick(30, 2025, false, enabled())

	require.Equal(t, []int{2, 1}, snd.beeps)
	require.Equal(t, []uint8{128, 128}, snd.volumes)
}

func TestLatchReleasesOnNonMatchingMinute(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)

	s.Tick(0, 2025, false, enabled())
	s.Tick(1, 2025, false, enabled())
	s.Tick(0, 2025, false, enabled()) // next hour

	require.Equal(t, []int{2, 2}, snd.beeps)
}

func TestDisabledTriggersDoNotFire(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)
	cfg := Config{Hourly: false, HalfHourly: false}

	s.Tick(0, 2025, false, cfg)
	s.Tick(30, 2025, false, cfg)
	require.Empty(t, snd.beeps)
}

func TestMutedInDark(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)

	for tick := 0; tick < 10; tick++ {
		s.Tick(30, 2025, true, enabled())
	}
	require.Empty(t, snd.beeps)

	// The room lights up while the minute still matches: the chime may
	// still fire, once.
	s.Tick(30, 2025, false, enabled())
	s.Tick(30, 2025, false, enabled())
	require.Equal(t, []int{1}, snd.beeps)
}

func TestNoChimeBeforeFirstSync(t *testing.T) {
	snd := &recordingSounder{}
	s := NewScheduler(snd)

	// Unsynced clocks report 1970; minute 0 must not chime.
	for tick := 0; tick < 10; tick++ {
		s.Tick(0, 1970, false, enabled())
	}
	require.Empty(t, snd.beeps)

	// A fix arrives within the same minute: the chime fires.
	s.Tick(0, 2025, false, enabled())
	require.Equal(t, []int{2}, snd.beeps)
}
