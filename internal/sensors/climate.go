package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/relabs-tech/sat_clock/internal/env"
)

// Climate reads the BME280 temperature/humidity/pressure sensor.
type Climate struct {
	dev *bmxx80.Dev
}

// NewClimate probes the BME280 on the shared I2C bus. A probe failure is
// fatal-to-feature: the caller shows the error screen and continues without
// climate readings.
func NewClimate(bus i2c.Bus, addr uint16) (*Climate, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("BME280 init at 0x%02X: %w", addr, err)
	}
	return &Climate{dev: dev}, nil
}

// Read takes one measurement.
func (c *Climate) Read() (env.Sample, error) {
	var e physic.Env
	if err := c.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("BME280 sense: %w", err)
	}
	return env.Sample{
		Temperature: e.Temperature.Celsius(),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
	}, nil
}
