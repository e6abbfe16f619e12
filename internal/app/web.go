package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sat_clock/internal/power"
	"github.com/relabs-tech/sat_clock/internal/settings"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The appliance lives on a trusted home network behind provisioning.
	CheckOrigin: func(*http.Request) bool { return true },
}

// status assembles the live status report from the cross-context atomics.
// The power mode is derived from the same condition the supervisor applies,
// so the report never races its transitions.
func (c *Clock) status() Status {
	fix := c.LastFix()
	t := time.Unix(c.tb.Epoch(), 0).UTC()
	mode := power.Normal
	if c.state.Dark() && c.store.Bool(settings.KeyOffInDark) {
		mode = power.DarkSave
	}
	return Status{
		Time:       t.Format("15:04:05"),
		Synced:     c.tb.Synced(),
		Lux:        c.state.Lux(),
		Dark:       c.state.Dark(),
		Duty:       c.state.Duty(),
		Satellites: fix.Satellites,
		HDOP:       fix.HDOP,
		Power:      mode.String(),
	}
}

// provisioningURL is what the Wi-Fi QR screen points the operator's phone
// at.
func (c *Clock) provisioningURL() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "sat-clock"
	}
	return fmt.Sprintf("http://%s.local:%d/", host, c.cfg.WebServerPort)
}

type credentials struct {
	SSID string `json:"ssid"`
	Pass string `json:"pass"`
}

// RunWeb serves the provisioning/update interface: credential get/set, the
// live status API and websocket stream, and the firmware-update upload
// that raises the shared update-in-progress flag.
func (c *Clock) RunWeb() error {
	addr := fmt.Sprintf(":%d", c.cfg.WebServerPort)
	log.Printf("web: provisioning server listening on %s", addr)
	return http.ListenAndServe(addr, c.webMux())
}

func (c *Clock) webMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(c.status()); err != nil {
			log.Printf("web: status encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/credentials", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			// The passphrase is never echoed back.
			json.NewEncoder(w).Encode(credentials{
				SSID: c.store.String(settings.KeyWifiSSID),
			})

		case http.MethodPost:
			var creds credentials
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := c.store.SetString(settings.KeyWifiSSID, creds.SSID); err != nil {
				http.Error(w, "persist failed", http.StatusInternalServerError)
				return
			}
			if err := c.store.SetString(settings.KeyWifiPass, creds.Pass); err != nil {
				http.Error(w, "persist failed", http.StatusInternalServerError)
				return
			}
			log.Printf("web: credentials updated (ssid=%q)", creds.SSID)
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/update", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !c.updating.CompareAndSwap(false, true) {
			http.Error(w, "update already in progress", http.StatusConflict)
			return
		}

		log.Println("web: firmware update started")
		if err := c.receiveUpdate(r.Body); err != nil {
			c.updating.Store(false)
			log.Printf("web: firmware update failed: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
		log.Println("web: firmware update stored, restarting")
		go c.restart("Firmware update")
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(c.status()); err != nil {
				return
			}
		}
	})

	return mux
}

func (c *Clock) receiveUpdate(body io.Reader) error {
	tmp := c.cfg.UpdatePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create update file: %w", err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("receive update: %w", err)
	}
	if n == 0 {
		os.Remove(tmp)
		return fmt.Errorf("receive update: empty image")
	}

	if err := os.Rename(tmp, c.cfg.UpdatePath); err != nil {
		return fmt.Errorf("install update: %w", err)
	}
	log.Printf("web: received firmware image (%d bytes)", n)
	return nil
}
