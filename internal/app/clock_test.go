package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sat_clock/internal/config"
	"github.com/relabs-tech/sat_clock/internal/gps"
	"github.com/relabs-tech/sat_clock/internal/sensors"
	"github.com/relabs-tech/sat_clock/internal/settings"
)

func testClock(t *testing.T) *Clock {
	t.Helper()
	dir := t.TempDir()
	store, err := settings.Open(filepath.Join(dir, "settings.txt"))
	require.NoError(t, err)

	return New(Options{
		Config: &config.Config{
			TimezoneOffsetSeconds: 3600,
			LuxDarkThreshold:      1.0,
			BrightLuxMin:          1,
			BrightLuxMax:          120,
			BrightDutyMin:         10,
			BrightDutyMax:         255,
			BrightAlpha:           0.7,
			LuxTimeout:            3000,
			WebServerPort:         8080,
			UpdatePath:            filepath.Join(dir, "firmware.bin"),
		},
		Store: store,
	})
}

type scriptedButtons struct {
	presses []sensors.Button
	i       int
}

func (s *scriptedButtons) Poll(time.Duration) (sensors.Button, bool) {
	if s.i >= len(s.presses) {
		return 0, false
	}
	b := s.presses[s.i]
	s.i++
	return b, true
}

// queuedPort hands out one queued chunk per read, then reports dry.
type queuedPort struct {
	chunks [][]byte
}

func (q *queuedPort) Read(p []byte) (int, error) {
	if len(q.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, q.chunks[0])
	q.chunks = q.chunks[1:]
	return n, nil
}

// nmeaSentence frames a body with $, a correct checksum and CRLF.
func nmeaSentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

func TestFlushReadsPortDry(t *testing.T) {
	port := &queuedPort{chunks: [][]byte{
		make([]byte, 256), make([]byte, 256), make([]byte, 64),
	}}
	serialFlusher{port: port, decoder: gps.NewDecoder()}.Flush()
	require.Empty(t, port.chunks, "flush must drain every buffered read, not just one")
}

func TestFlushDropsBackloggedSentence(t *testing.T) {
	// A complete, valid fix sentence sits half inside the decoder and half
	// in the serial buffer when the flush runs, the shape of a backlog
	// built up while the display was dark.
	raw := nmeaSentence("GPRMC,140000.00,A,5231.2000,N,01323.4500,E,0.5,0.0,100325,,,A")
	dec := gps.NewDecoder()
	for i := 0; i < len(raw)/2; i++ {
		require.False(t, dec.Feed(raw[i]))
	}
	port := &queuedPort{chunks: [][]byte{[]byte(raw[len(raw)/2:])}}

	serialFlusher{port: port, decoder: dec}.Flush()
	require.Empty(t, port.chunks)

	// Neither half survives: the old timestamp can never complete a fix
	// and masquerade as fresh.
	completed := false
	for _, b := range []byte("\r\n") {
		if dec.Feed(b) {
			completed = true
		}
	}
	require.False(t, completed)
}

func TestMenuReachableWhileDarkSaving(t *testing.T) {
	c := testClock(t)
	c.buttons = &scriptedButtons{presses: []sensors.Button{
		sensors.ButtonNext,   // wake press opens the menu
		sensors.ButtonSelect, // enter Display
		sensors.ButtonNext,   // toggle auto-bright
		sensors.ButtonSelect, // back to main; then timeout exits
	}}

	require.True(t, c.store.Bool(settings.KeyAutoBright))
	c.pollMenuWhileDark()
	require.False(t, c.store.Bool(settings.KeyAutoBright),
		"menu must be operable from a dark room")
	require.False(t, c.menuOpen.Load())
}

func TestRunMenuTogglesSettingAndCloses(t *testing.T) {
	c := testClock(t)
	c.buttons = &scriptedButtons{presses: []sensors.Button{
		sensors.ButtonSelect, // enter Display
		sensors.ButtonNext,   // toggle auto-bright
		sensors.ButtonSelect, // back to main; then timeout exits
	}}

	require.True(t, c.store.Bool(settings.KeyAutoBright))
	c.runMenu()
	require.False(t, c.store.Bool(settings.KeyAutoBright))
	require.False(t, c.menuOpen.Load(), "menu flag must clear on exit")
}

func TestRunMenuAbortsDuringUpdate(t *testing.T) {
	c := testClock(t)
	c.buttons = &scriptedButtons{presses: []sensors.Button{sensors.ButtonNext}}
	c.updating.Store(true)

	done := make(chan struct{})
	go func() {
		c.runMenu()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("menu did not abort while update in progress")
	}
}

func TestStatusReflectsSharedState(t *testing.T) {
	c := testClock(t)
	c.setLastFix(gps.Fix{Satellites: 7, HDOP: 1.4})

	st := c.status()
	require.False(t, st.Synced)
	require.Equal(t, 7, st.Satellites)
	require.InDelta(t, 1.4, st.HDOP, 1e-9)
	require.Equal(t, "00:00:00", st.Time, "unsynced clock reports the epoch")
	require.Equal(t, "NORMAL", st.Power)
}

func TestWebCredentials(t *testing.T) {
	c := testClock(t)
	srv := httptest.NewServer(c.webMux())
	defer srv.Close()

	body, _ := json.Marshal(credentials{SSID: "home-net", Pass: "hunter2"})
	resp, err := http.Post(srv.URL+"/api/credentials", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Equal(t, "home-net", c.store.String(settings.KeyWifiSSID))
	require.Equal(t, "hunter2", c.store.String(settings.KeyWifiPass))

	resp, err = http.Get(srv.URL + "/api/credentials")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got credentials
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "home-net", got.SSID)
	require.Empty(t, got.Pass, "passphrase must not be echoed back")
}

func TestWebUpdateRejectsEmptyImage(t *testing.T) {
	c := testClock(t)
	srv := httptest.NewServer(c.webMux())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/update", "application/octet-stream", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.False(t, c.updating.Load(), "failed update must clear the flag")

	_, err = os.Stat(c.cfg.UpdatePath)
	require.True(t, os.IsNotExist(err))
}

func TestWebStatusEndpoint(t *testing.T) {
	c := testClock(t)
	srv := httptest.NewServer(c.webMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.False(t, st.Dark)
	require.False(t, st.Synced)
}

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *Telemetry
	tel.PublishFix(gps.Fix{})
	tel.PublishStatus(Status{})
	tel.Close()
}
