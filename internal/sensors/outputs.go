package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Backlight drives the display backlight on a hardware PWM pin with an
// 8-bit duty.
type Backlight struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

func NewBacklight(pinName string, freqHz int) (*Backlight, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("backlight pin %q not found", pinName)
	}
	return &Backlight{pin: pin, freq: physic.Frequency(freqHz) * physic.Hertz}, nil
}

// SetDuty writes an 8-bit duty to the pin, 0 = off, 255 = full.
func (b *Backlight) SetDuty(duty uint8) error {
	if duty == 0 {
		return b.pin.Out(gpio.Low)
	}
	scaled := gpio.Duty(uint64(duty) * uint64(gpio.DutyMax) / 255)
	return b.pin.PWM(scaled, b.freq)
}

// Buzzer plays beep patterns on a PWM pin. Volume maps to PWM duty on the
// piezo drive.
type Buzzer struct {
	pin  gpio.PinIO
	tone physic.Frequency
}

func NewBuzzer(pinName string) (*Buzzer, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("buzzer pin %q not found", pinName)
	}
	return &Buzzer{pin: pin, tone: 4 * physic.KiloHertz}, nil
}

// Beep plays count short beeps. Blocks for the pattern duration; only the
// secondary context calls it and a chime lasting under a second is fine
// there.
func (b *Buzzer) Beep(count int, volume uint8) {
	duty := gpio.Duty(uint64(volume) * uint64(gpio.DutyMax) / 255)
	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(120 * time.Millisecond)
		}
		_ = b.pin.PWM(duty, b.tone)
		time.Sleep(120 * time.Millisecond)
		_ = b.pin.Out(gpio.Low)
	}
}

// Button identifies one of the two front buttons.
type Button int

const (
	ButtonNext Button = iota
	ButtonSelect
)

// Buttons polls the two active-low front buttons.
type Buttons struct {
	next   gpio.PinIO
	sel    gpio.PinIO
	period time.Duration
}

func NewButtons(nextPin, selectPin string) (*Buttons, error) {
	next := gpioreg.ByName(nextPin)
	if next == nil {
		return nil, fmt.Errorf("button pin %q not found", nextPin)
	}
	sel := gpioreg.ByName(selectPin)
	if sel == nil {
		return nil, fmt.Errorf("button pin %q not found", selectPin)
	}
	if err := next.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %q: %w", nextPin, err)
	}
	if err := sel.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %q: %w", selectPin, err)
	}
	return &Buttons{next: next, sel: sel, period: 10 * time.Millisecond}, nil
}

// Poll waits for a button press, bounded by timeout. Returns false when
// the deadline passes with no press. The wait is a fixed-period scan, so
// the caller's loop never blocks open-endedly on hardware.
func (b *Buttons) Poll(timeout time.Duration) (Button, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.next.Read() == gpio.Low {
			b.waitRelease(b.next)
			return ButtonNext, true
		}
		if b.sel.Read() == gpio.Low {
			b.waitRelease(b.sel)
			return ButtonSelect, true
		}
		time.Sleep(b.period)
	}
	return 0, false
}

// waitRelease debounces: hold the event until the key is let go, capped so
// a stuck button cannot wedge the loop.
func (b *Buttons) waitRelease(pin gpio.PinIO) {
	deadline := time.Now().Add(2 * time.Second)
	for pin.Read() == gpio.Low && time.Now().Before(deadline) {
		time.Sleep(b.period)
	}
	time.Sleep(20 * time.Millisecond)
}
