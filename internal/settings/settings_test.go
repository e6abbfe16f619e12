package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAppliesDefaultsOnFirstBoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")

	s, err := Open(path)
	require.NoError(t, err)
	require.False(t, s.MemoryOnly())

	require.Equal(t, 250, s.Int(KeyBacklight))
	require.True(t, s.Bool(KeyAutoBright))
	require.True(t, s.Bool(KeyMuteDark))
	require.False(t, s.Bool(KeyOffInDark))
	require.Equal(t, 128, s.Int(KeyBuzzerVolume))
	require.Equal(t, "", s.String(KeyWifiSSID))

	// Defaults were persisted.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "backlight=250")
}

func TestDefaultsAppliedExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetInt(KeyBacklight, 42))

	// Reopening must keep the user's value, not re-default it.
	s2, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 42, s2.Int(KeyBacklight))
}

func TestSetPersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.SetBool(KeyHourlyAlarm, true))
	require.NoError(t, s.SetString(KeyWifiSSID, "home-net"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hourly_alarm=true")
	require.Contains(t, string(data), "wifi_ssid=home-net")
}

func TestOpenFailureFallsBackToMemory(t *testing.T) {
	// A directory as the settings path cannot be read as a file.
	dir := t.TempDir()

	s, err := Open(dir)
	require.Error(t, err)
	require.True(t, s.MemoryOnly())

	// Defaults still work, and writes do not blow up.
	require.Equal(t, 250, s.Int(KeyBacklight))
	require.NoError(t, s.SetInt(KeyBacklight, 10))
	require.Equal(t, 10, s.Int(KeyBacklight))
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.SetBool(KeyMode12h, true))
	require.NoError(t, s.SetString(KeyWifiPass, "secret"))
	require.NoError(t, s.Reset())

	require.False(t, s.Bool(KeyMode12h))
	require.Equal(t, "", s.String(KeyWifiPass))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "secret"))
}

func TestMalformedValuesReadAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(path, []byte("backlight=notanumber\nmode_12h=maybe\n"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 0, s.Int(KeyBacklight))
	require.False(t, s.Bool(KeyMode12h))
}
