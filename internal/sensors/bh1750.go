package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/sat_clock/internal/ambient"
)

// BH1750 one-shot command set. After a one-time measurement the chip
// powers itself down, which suits the 4 s sampling cadence.
const (
	bh1750PowerOn     = 0x01
	bh1750OneTimeHigh = 0x20

	// Worst-case conversion time for high-resolution mode per datasheet.
	bh1750ConvTime = 180 * time.Millisecond

	// One raw count is 1/1.2 lx in high-resolution mode.
	bh1750LuxPerCount = 1.0 / 1.2
)

// Lux reads the BH1750 ambient light sensor.
type Lux struct {
	dev i2c.Dev
}

// NewLux probes the BH1750 with a power-on command. Like the climate
// sensor, a probe failure degrades the feature rather than the process.
func NewLux(bus i2c.Bus, addr uint16) (*Lux, error) {
	dev := i2c.Dev{Bus: bus, Addr: addr}
	if err := dev.Tx([]byte{bh1750PowerOn}, nil); err != nil {
		return nil, fmt.Errorf("BH1750 probe at 0x%02X: %w", addr, err)
	}
	return &Lux{dev: dev}, nil
}

// Measure starts a one-time high-resolution conversion and waits for it,
// bounded by timeout. The wait is a polled sleep, never an open-ended
// block: if the deadline lands before the conversion can complete,
// ambient.ErrTimeout is returned and the caller keeps its previous value.
func (l *Lux) Measure(timeout time.Duration) (float64, error) {
	deadline := time.Now().Add(timeout)

	if err := l.dev.Tx([]byte{bh1750OneTimeHigh}, nil); err != nil {
		return 0, fmt.Errorf("BH1750 start measurement: %w", err)
	}

	ready := time.Now().Add(bh1750ConvTime)
	for time.Now().Before(ready) {
		if !time.Now().Before(deadline) {
			return 0, ambient.ErrTimeout
		}
		time.Sleep(20 * time.Millisecond)
	}

	var buf [2]byte
	if err := l.dev.Tx(nil, buf[:]); err != nil {
		return 0, fmt.Errorf("BH1750 read: %w", err)
	}
	raw := uint16(buf[0])<<8 | uint16(buf[1])
	return float64(raw) * bh1750LuxPerCount, nil
}
