// Package timebase turns GPS fixes into the local civil time the rest of
// the firmware renders and schedules against. Every fresh fix overwrites
// the clock outright; there is no drift filtering.
package timebase

import (
	"sync/atomic"
	"time"

	"github.com/relabs-tech/sat_clock/internal/gps"
)

// MaxFixAge is the freshness gate: a fix older than this by the time it
// reaches ApplyFix (serial buffering, a slow loop turn) is discarded.
const MaxFixAge = 500 * time.Millisecond

// syncedYearFloor guards "clock not yet set": any locally derived year
// below this means no real fix has ever been applied.
const syncedYearFloor = 2020

// LocalTime is the broken-down local civil time derived from the last
// accepted fix. Rewritten in full on each acceptance, never patched.
type LocalTime struct {
	Epoch     int64 // seconds since the Unix epoch, already zone-shifted
	Year      int
	Month     time.Month
	Day       int
	Weekday   time.Weekday
	Hour24    int
	Hour12    int // 1..12
	Minute    int
	Second    int
	Afternoon bool
}

// TimeBase owns LocalTime. Only the primary context calls ApplyFix and
// reads Local; the secondary context sees the clock exclusively through
// the atomic Minute/Second/Year accessors.
type TimeBase struct {
	offsetSeconds int64
	local         LocalTime
	lastRendered  int64

	minute atomic.Int32
	second atomic.Int32
	year   atomic.Int32
	epoch  atomic.Int64
	synced atomic.Bool
}

func New(offsetSeconds int) *TimeBase {
	tb := &TimeBase{offsetSeconds: int64(offsetSeconds)}
	tb.year.Store(1970)
	return tb
}

// ApplyFix converts a UTC fix into local time and installs it as the new
// LocalTime. Stale fixes (age ≥ MaxFixAge) and fixes with a nonsensical
// date are rejected as no-ops. Returns whether the fix was accepted.
func (tb *TimeBase) ApplyFix(f gps.Fix) bool {
	if f.Age() >= MaxFixAge {
		return false
	}
	if f.Year < syncedYearFloor || f.Month < 1 || f.Month > 12 || f.Day < 1 || f.Day > 31 {
		return false
	}

	utc := time.Date(f.Year, time.Month(f.Month), f.Day, f.Hour, f.Minute, f.Second, 0, time.UTC)
	epoch := utc.Unix() + tb.offsetSeconds

	// The offset is already folded into the epoch, so the broken-down
	// fields come from a plain UTC decomposition of the shifted instant.
	lt := time.Unix(epoch, 0).UTC()

	h12, pm := To12Hour(lt.Hour())
	tb.local = LocalTime{
		Epoch:     epoch,
		Year:      lt.Year(),
		Month:     lt.Month(),
		Day:       lt.Day(),
		Weekday:   lt.Weekday(),
		Hour24:    lt.Hour(),
		Hour12:    h12,
		Minute:    lt.Minute(),
		Second:    lt.Second(),
		Afternoon: pm,
	}

	tb.minute.Store(int32(lt.Minute()))
	tb.second.Store(int32(lt.Second()))
	tb.year.Store(int32(lt.Year()))
	tb.epoch.Store(epoch)
	tb.synced.Store(true)
	return true
}

// Local returns the current LocalTime. Primary context only.
func (tb *TimeBase) Local() LocalTime {
	return tb.local
}

// SecondChanged reports whether the displayed second differs from the last
// rendered one. Repaints are driven strictly by this edge: fixes faster
// than 1 Hz collapse into one redraw per second, and an irregular fix
// cadence still redraws on every elapsed display-second.
func (tb *TimeBase) SecondChanged() bool {
	return tb.synced.Load() && tb.local.Epoch != tb.lastRendered
}

// MarkRendered records that the current second has been painted.
func (tb *TimeBase) MarkRendered() {
	tb.lastRendered = tb.local.Epoch
}

// Minute is the cross-context view of the local minute (alarm scheduling).
func (tb *TimeBase) Minute() int { return int(tb.minute.Load()) }

// Second is the cross-context view of the local second.
func (tb *TimeBase) Second() int { return int(tb.second.Load()) }

// Year is the cross-context view of the local year; stays at 1970 until a
// real fix has been applied.
func (tb *TimeBase) Year() int { return int(tb.year.Load()) }

// Epoch is the cross-context view of the zone-shifted epoch seconds.
func (tb *TimeBase) Epoch() int64 { return tb.epoch.Load() }

// Synced reports whether at least one fix has ever been accepted.
func (tb *TimeBase) Synced() bool { return tb.synced.Load() }

// To12Hour maps a 24h hour to the displayed 12h hour and an afternoon
// flag. Hours 0 and 12 both display as 12; the AM/PM boundary is hour 12.
func To12Hour(h int) (hour int, pm bool) {
	pm = h >= 12
	switch {
	case h == 0:
		return 12, false
	case h <= 12:
		return h, pm
	default:
		return h - 12, true
	}
}
