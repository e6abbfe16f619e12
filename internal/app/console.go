package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sat_clock/internal/config"
	"github.com/relabs-tech/sat_clock/internal/env"
	"github.com/relabs-tech/sat_clock/internal/gps"
)

// RunConsole subscribes to the clock's telemetry topics and prints them;
// handy when the appliance sits on a shelf and the display is tiny.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	fixToken := client.Subscribe(cfg.TopicFix, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: fix unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[FIX ]  %04d-%02d-%02d %02d:%02d:%02dZ sats=%d hdop=%.1f lat=%.6f lon=%.6f alt=%.0fm\n",
			f.Year, f.Month, f.Day, f.Hour, f.Minute, f.Second,
			f.Satellites, f.HDOP, f.Latitude, f.Longitude, f.Altitude,
		)
	})
	fixToken.Wait()
	if fixToken.Error() != nil {
		return fixToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicFix)

	envToken := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: env unmarshal error: %v", err)
			return
		}
		fmt.Printf("[ENV ]  %.1fC %.0f%%RH %.0fhPa\n",
			s.Temperature, s.Humidity, s.Pressure/100.0)
	})
	envToken.Wait()
	if envToken.Error() != nil {
		return envToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEnv)

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Printf("[STAT]  time=%s synced=%t lux=%.1f dark=%t duty=%d power=%s\n",
			st.Time, st.Synced, st.Lux, st.Dark, st.Duty, st.Power)
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
