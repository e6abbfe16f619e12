package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all firmware configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDClock   string
	MQTTClientIDConsole string

	// Topics
	TopicFix    string
	TopicEnv    string
	TopicStatus string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
	GPSMinSats    int
	GPSMaxHDOP    float64

	// Time
	TimezoneOffsetSeconds int

	// Backlight
	BacklightPin    string
	BacklightFreqHz int

	// Sensors
	LuxI2CAddr uint16
	EnvI2CAddr uint16

	// Buzzer / buttons
	BuzzerPin    string
	ButtonNext   string
	ButtonSelect string

	// Brightness mapping (the duty floor differs between hardware
	// revisions; both ends are tunables, not contracts)
	LuxDarkThreshold float64
	BrightLuxMin     float64
	BrightLuxMax     float64
	BrightDutyMin    int
	BrightDutyMax    int
	BrightAlpha      float64

	// Timing (milliseconds)
	LuxInterval      int
	EnvInterval      int
	AnimInterval     int
	AlarmInterval    int
	DarkSaveInterval int
	LuxTimeout       int

	// Web server
	WebServerPort int

	// Paths
	SettingsPath string
	UpdatePath   string
}

// Package-level unexported variables for singleton pattern: external code
// must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config pre-filled with the values the hardware ships
// with; the config file only needs to override what differs.
func defaults() *Config {
	return &Config{
		MQTTClientIDClock:   "sat-clock",
		MQTTClientIDConsole: "sat-clock-console",
		TopicFix:            "satclock/fix",
		TopicEnv:            "satclock/env",
		TopicStatus:         "satclock/status",
		GPSSerialPort:       "/dev/serial0",
		GPSBaudRate:         9600,
		GPSMinSats:          4,
		GPSMaxHDOP:          5.0,
		BacklightPin:        "GPIO18",
		BacklightFreqHz:     25000,
		LuxI2CAddr:          0x23,
		EnvI2CAddr:          0x76,
		BuzzerPin:           "GPIO13",
		ButtonNext:          "GPIO23",
		ButtonSelect:        "GPIO24",
		LuxDarkThreshold:    1.0,
		BrightLuxMin:        1.0,
		BrightLuxMax:        120.0,
		BrightDutyMin:       10,
		BrightDutyMax:       255,
		BrightAlpha:         0.7,
		LuxInterval:         4000,
		EnvInterval:         12000,
		AnimInterval:        20,
		AlarmInterval:       50,
		DarkSaveInterval:    1000,
		LuxTimeout:          3000,
		WebServerPort:       8080,
		SettingsPath:        "clock_settings.txt",
		UpdatePath:          "firmware_update.bin",
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CLOCK":
		c.MQTTClientIDClock = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_FIX":
		c.TopicFix = value
	case "TOPIC_ENV":
		c.TopicEnv = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "GPS_MIN_SATS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_MIN_SATS %q: %w", value, err)
		}
		if n < 1 || n > 12 {
			return fmt.Errorf("GPS_MIN_SATS must be 1-12, got %d", n)
		}
		c.GPSMinSats = n
	case "GPS_MAX_HDOP":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_MAX_HDOP %q: %w", value, err)
		}
		c.GPSMaxHDOP = f

	// Time
	case "TIMEZONE_OFFSET_SECONDS":
		off, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TIMEZONE_OFFSET_SECONDS %q: %w", value, err)
		}
		if off < -14*3600 || off > 14*3600 {
			return fmt.Errorf("TIMEZONE_OFFSET_SECONDS out of range: %d", off)
		}
		c.TimezoneOffsetSeconds = off

	// Backlight
	case "BACKLIGHT_PIN":
		c.BacklightPin = value
	case "BACKLIGHT_FREQ_HZ":
		f, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BACKLIGHT_FREQ_HZ %q: %w", value, err)
		}
		c.BacklightFreqHz = f

	// Sensors
	case "LUX_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid LUX_I2C_ADDR %q: %w", value, err)
		}
		c.LuxI2CAddr = uint16(addr)
	case "ENV_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid ENV_I2C_ADDR %q: %w", value, err)
		}
		c.EnvI2CAddr = uint16(addr)

	// Buzzer / buttons
	case "BUZZER_PIN":
		c.BuzzerPin = value
	case "BUTTON_NEXT":
		c.ButtonNext = value
	case "BUTTON_SELECT":
		c.ButtonSelect = value

	// Brightness mapping
	case "LUX_DARK_THRESHOLD":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid LUX_DARK_THRESHOLD %q: %w", value, err)
		}
		c.LuxDarkThreshold = f
	case "BRIGHT_LUX_MIN":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BRIGHT_LUX_MIN %q: %w", value, err)
		}
		c.BrightLuxMin = f
	case "BRIGHT_LUX_MAX":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BRIGHT_LUX_MAX %q: %w", value, err)
		}
		c.BrightLuxMax = f
	case "BRIGHT_DUTY_MIN":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BRIGHT_DUTY_MIN %q: %w", value, err)
		}
		if n < 0 || n > 255 {
			return fmt.Errorf("BRIGHT_DUTY_MIN must be 0-255, got %d", n)
		}
		c.BrightDutyMin = n
	case "BRIGHT_DUTY_MAX":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BRIGHT_DUTY_MAX %q: %w", value, err)
		}
		if n < 0 || n > 255 {
			return fmt.Errorf("BRIGHT_DUTY_MAX must be 0-255, got %d", n)
		}
		c.BrightDutyMax = n
	case "BRIGHT_ALPHA":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid BRIGHT_ALPHA %q: %w", value, err)
		}
		if f < 0 || f >= 1 {
			return fmt.Errorf("BRIGHT_ALPHA must be in [0,1), got %v", f)
		}
		c.BrightAlpha = f

	// Timing
	case "LUX_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LUX_INTERVAL %q: %w", value, err)
		}
		c.LuxInterval = n
	case "ENV_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ENV_INTERVAL %q: %w", value, err)
		}
		c.EnvInterval = n
	case "ANIM_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ANIM_INTERVAL %q: %w", value, err)
		}
		c.AnimInterval = n
	case "ALARM_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ALARM_INTERVAL %q: %w", value, err)
		}
		c.AlarmInterval = n
	case "DARK_SAVE_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DARK_SAVE_INTERVAL %q: %w", value, err)
		}
		c.DarkSaveInterval = n
	case "LUX_TIMEOUT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LUX_TIMEOUT %q: %w", value, err)
		}
		c.LuxTimeout = n

	// Web server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Paths
	case "SETTINGS_PATH":
		c.SettingsPath = value
	case "UPDATE_PATH":
		c.UpdatePath = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required")
	}
	if c.BrightDutyMin >= c.BrightDutyMax {
		return fmt.Errorf("BRIGHT_DUTY_MIN must be below BRIGHT_DUTY_MAX")
	}
	if c.BrightLuxMin >= c.BrightLuxMax {
		return fmt.Errorf("BRIGHT_LUX_MIN must be below BRIGHT_LUX_MAX")
	}
	if c.AnimInterval <= 0 || c.LuxInterval <= 0 || c.EnvInterval <= 0 {
		return fmt.Errorf("sampling intervals must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
