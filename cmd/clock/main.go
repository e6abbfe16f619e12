package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sat_clock/internal/alarm"
	"github.com/relabs-tech/sat_clock/internal/ambient"
	"github.com/relabs-tech/sat_clock/internal/app"
	"github.com/relabs-tech/sat_clock/internal/config"
	"github.com/relabs-tech/sat_clock/internal/power"
	"github.com/relabs-tech/sat_clock/internal/sensors"
	"github.com/relabs-tech/sat_clock/internal/settings"
)

func main() {
	log.Println("starting sat_clock firmware")

	configPath := "clock_config.txt"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := config.InitGlobal(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init: %v", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I2C bus: %v", err)
	}
	defer bus.Close()

	// The display is the whole point of the device; without it there is
	// nothing to run degraded for.
	screen, err := app.NewScreen(bus)
	if err != nil {
		log.Fatalf("display init: %v", err)
	}

	// Everything below is fatal-to-feature only: report on the error
	// screen, then continue without the part.
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		app.ErrorCountdown(screen, "settings store", 5)
	}

	var light ambient.LightSensor
	if lux, err := sensors.NewLux(bus, cfg.LuxI2CAddr); err != nil {
		app.ErrorCountdown(screen, "light sensor", 5)
	} else {
		light = lux
	}

	var climate ambient.ClimateSensor
	if dev, err := sensors.NewClimate(bus, cfg.EnvI2CAddr); err != nil {
		app.ErrorCountdown(screen, "climate sensor", 5)
	} else {
		climate = dev
	}

	var backlight ambient.Backlight
	if out, err := sensors.NewBacklight(cfg.BacklightPin, cfg.BacklightFreqHz); err != nil {
		log.Printf("backlight init: %v", err)
	} else {
		backlight = out
	}

	var sounder alarm.Sounder
	if buz, err := sensors.NewBuzzer(cfg.BuzzerPin); err != nil {
		log.Printf("buzzer init: %v", err)
	} else {
		sounder = buz
	}

	var buttons app.ButtonInput
	if btns, err := sensors.NewButtons(cfg.ButtonNext, cfg.ButtonSelect); err != nil {
		log.Printf("buttons init: %v", err)
	} else {
		buttons = btns
	}

	var telemetry *app.Telemetry
	if store.Bool(settings.KeyUseNetwork) && cfg.MQTTBroker != "" {
		telemetry, err = app.NewTelemetry(cfg)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		}
	}
	defer telemetry.Close()

	clock := app.New(app.Options{
		Config:    cfg,
		Store:     store,
		Screen:    screen,
		Light:     light,
		Climate:   climate,
		Backlight: backlight,
		Sounder:   sounder,
		Buttons:   buttons,
		Telemetry: telemetry,
	})

	go clock.RunSecondary()
	go func() {
		if err := clock.RunWeb(); err != nil {
			log.Printf("web server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down")
		clock.Stop()
	}()

	if err := clock.RunPrimary(power.NewSysfsCPU()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
