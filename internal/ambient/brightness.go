package ambient

import "log"

// Backlight is the hardware output the controller drives: an 8-bit PWM
// duty where 0 is off and 255 is full brightness.
type Backlight interface {
	SetDuty(duty uint8) error
}

// BrightnessConfig are the mapping tunables. The duty floor varies between
// hardware revisions (some panels stay readable at 10, others need 40), so
// none of these are contracts.
type BrightnessConfig struct {
	LuxMin  float64 // clamp floor for the raw lux reading
	LuxMax  float64 // clamp ceiling
	DutyMin int     // duty mapped to LuxMin
	DutyMax int     // duty mapped to LuxMax
	Alpha   float64 // EMA weight of the previous output
}

// Brightness is the closed-loop backlight controller. Retarget runs on the
// coarse lux cadence, Tick on the fine animation cadence; both are called
// from the secondary context only.
type Brightness struct {
	cfg BrightnessConfig
	out Backlight

	current float64
	target  float64

	// lastWritten avoids redundant hardware writes; -1 forces the first
	// Tick to write.
	lastWritten int
}

func NewBrightness(cfg BrightnessConfig, out Backlight) *Brightness {
	return &Brightness{cfg: cfg, out: out, lastWritten: -1}
}

// Retarget recomputes the target duty from a raw illuminance sample:
// the lux value is clamped to [LuxMin,LuxMax] and that range is mapped
// linearly onto [DutyMin,DutyMax].
func (b *Brightness) Retarget(lux float64) {
	if lux < b.cfg.LuxMin {
		lux = b.cfg.LuxMin
	}
	if lux > b.cfg.LuxMax {
		lux = b.cfg.LuxMax
	}
	span := b.cfg.LuxMax - b.cfg.LuxMin
	frac := (lux - b.cfg.LuxMin) / span
	b.target = float64(b.cfg.DutyMin) + frac*float64(b.cfg.DutyMax-b.cfg.DutyMin)
}

// SetTarget pins the target directly. Used in manual brightness mode.
func (b *Brightness) SetTarget(duty int) {
	if duty < 0 {
		duty = 0
	}
	if duty > 255 {
		duty = 255
	}
	b.target = float64(duty)
}

// Tick advances the output one smoothing step toward the target and writes
// the duty to hardware when the truncated value actually changed.
//
// The dark override bypasses the smoothing entirely: with the room dark and
// off-in-dark enabled the panel goes black on the very next tick. An open
// menu suspends the override so the operator can still see what they are
// doing.
func (b *Brightness) Tick(dark, offInDark, menuOpen bool) int {
	if dark && offInDark && !menuOpen {
		b.current = 0
	} else {
		b.current = b.current*b.cfg.Alpha + b.target*(1-b.cfg.Alpha)
	}

	duty := int(b.current)
	if duty != b.lastWritten {
		if err := b.out.SetDuty(uint8(duty)); err != nil {
			log.Printf("brightness: backlight write error: %v", err)
			return b.lastWritten
		}
		b.lastWritten = duty
	}
	return duty
}

// Current returns the truncated duty of the smoothed output.
func (b *Brightness) Current() int { return int(b.current) }

// Target returns the truncated target duty.
func (b *Brightness) Target() int { return int(b.target) }
