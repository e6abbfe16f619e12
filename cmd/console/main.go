package main

import (
	"log"
	"os"

	"github.com/relabs-tech/sat_clock/internal/app"
	"github.com/relabs-tech/sat_clock/internal/config"
)

func main() {
	log.Println("starting sat_clock console (MQTT subscriber)")

	configPath := "clock_config.txt"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := config.InitGlobal(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
