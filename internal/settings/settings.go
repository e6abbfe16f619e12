// Package settings is the persistent user-settings store. It is a plain
// KEY=VALUE file rewritten on every confirmed change: the device is
// single-operator and settings change a few times a day at most, so
// rewriting the whole file beats journaling.
package settings

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Keys understood by the store.
const (
	KeyBacklight       = "backlight"
	KeyAutoBright      = "auto_bright"
	KeyHourlyAlarm     = "hourly_alarm"
	KeyHalfHourlyAlarm = "half_hourly_alarm"
	KeyUseNetwork      = "use_network"
	KeyMuteDark        = "mute_dark"
	KeyBuzzerVolume    = "buzzer_volume"
	KeyOffInDark       = "off_in_dark"
	KeyMode12h         = "mode_12h"
	KeyWifiSSID        = "wifi_ssid"
	KeyWifiPass        = "wifi_pass"
)

// defaults are applied exactly once per key on first boot: each key is
// existence-checked, written if absent, then read back like any other.
var defaults = map[string]string{
	KeyBacklight:       "250",
	KeyAutoBright:      "true",
	KeyHourlyAlarm:     "false",
	KeyHalfHourlyAlarm: "false",
	KeyUseNetwork:      "false",
	KeyMuteDark:        "true",
	KeyBuzzerVolume:    "128",
	KeyOffInDark:       "false",
	KeyMode12h:         "false",
	KeyWifiSSID:        "",
	KeyWifiPass:        "",
}

// Store is a file-backed settings store. All methods are safe for
// concurrent use; the menu (primary context) writes, everything else reads.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string

	// memoryOnly is set when the backing file could not be opened at
	// boot; the device then runs on defaults and changes do not survive
	// a restart.
	memoryOnly bool
}

// Open loads the store from path, creating it with defaults on first boot.
// On any I/O failure it returns a memory-only store along with the error so
// the caller can report the fault and continue degraded.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	if err := s.load(); err != nil {
		s.memoryOnly = true
		for k, v := range defaults {
			s.values[k] = v
		}
		return s, fmt.Errorf("settings: open %s: %w", path, err)
	}

	if err := s.ensureDefaults(); err != nil {
		return s, fmt.Errorf("settings: write defaults: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		// First boot: an absent file is not a fault, just empty.
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		s.values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return scanner.Err()
}

// ensureDefaults applies each default exactly once: keys already present
// keep whatever the user last confirmed.
func (s *Store) ensureDefaults() error {
	changed := false
	for k, v := range defaults {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persist()
}

// persist rewrites the backing file. Caller must hold mu (or be in Open).
func (s *Store) persist() error {
	if s.memoryOnly {
		return nil
	}

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, s.values[k])
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MemoryOnly reports whether the store lost its backing file at boot.
func (s *Store) MemoryOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memoryOnly
}

// Bool returns the boolean setting for key, false if unset or malformed.
func (s *Store) Bool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := strconv.ParseBool(s.values[key])
	return err == nil && v
}

// Int returns the integer setting for key, 0 if unset or malformed.
func (s *Store) Int(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := strconv.Atoi(s.values[key])
	if err != nil {
		return 0
	}
	return v
}

// String returns the string setting for key.
func (s *Store) String(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// SetBool stores and immediately persists a boolean setting.
func (s *Store) SetBool(key string, v bool) error {
	return s.set(key, strconv.FormatBool(v))
}

// SetInt stores and immediately persists an integer setting.
func (s *Store) SetInt(key string, v int) error {
	return s.set(key, strconv.Itoa(v))
}

// SetString stores and immediately persists a string setting.
func (s *Store) SetString(key, v string) error {
	return s.set(key, v)
}

func (s *Store) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persist()
}

// Reset restores every key to its default and persists. Used by the menu's
// factory-reset flow right before the process restarts itself.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string, len(defaults))
	for k, v := range defaults {
		s.values[k] = v
	}
	return s.persist()
}
