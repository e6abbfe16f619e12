package app

import (
	"fmt"
	"io"
	"log"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/sat_clock/internal/gps"
	"github.com/relabs-tech/sat_clock/internal/menu"
	"github.com/relabs-tech/sat_clock/internal/power"
	"github.com/relabs-tech/sat_clock/internal/sensors"
	"github.com/relabs-tech/sat_clock/internal/settings"
)

// serialFlusher discards pending satellite input on DARK_SAVE transitions:
// the decoder drops its partial sentence and the port is read dry, so a
// sentence decoded after a wake was received after it.
type serialFlusher struct {
	port    io.Reader
	decoder *gps.Decoder
}

// flushReads caps the drain loop; a 1 s backlog at 9600 baud fits in a
// handful of 256-byte reads, so the cap only guards a port that never
// goes quiet.
const flushReads = 64

func (f serialFlusher) Flush() {
	f.decoder.Reset()
	var scratch [256]byte
	for i := 0; i < flushReads; i++ {
		n, _ := f.port.Read(scratch[:])
		if n == 0 {
			return
		}
	}
}

// RunPrimary is the primary execution context: it services the satellite
// byte stream, keeps the time base current, repaints on each displayed
// second, opens the menu on a button press, and drives the power
// supervisor. Blocks until Stop or a serial failure.
func (c *Clock) RunPrimary(cpu power.CPU) error {
	serialOpts := serial.OpenOptions{
		PortName: c.cfg.GPSSerialPort,
		BaudRate: uint(c.cfg.GPSBaudRate),
		DataBits: 8,
		StopBits: 1,
		// MinimumReadSize 0 with an inter-character timeout keeps Read
		// bounded, so the loop can poll power mode and buttons even
		// when the receiver goes quiet.
		MinimumReadSize:       0,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 100,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", c.cfg.GPSSerialPort, err)
	}
	defer port.Close()
	log.Printf("primary: GPS serial port opened on %s at %d baud",
		serialOpts.PortName, serialOpts.BaudRate)

	flusher := serialFlusher{port: port, decoder: c.decoder}
	supervisor := power.NewSupervisor(cpu, c.screen, flusher)

	if c.screen != nil {
		if err := c.screen.ShowSplash(); err != nil {
			log.Printf("primary: splash: %v", err)
		}
	}

	darkSavePoll := time.Duration(c.cfg.DarkSaveInterval) * time.Millisecond
	waiting := true
	var lastWaitingPaint time.Time
	chunk := make([]byte, 256)

	for !c.stopped() {
		// A firmware update owns the box; park everything discretionary.
		if c.updating.Load() {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		offInDark := c.store.Bool(settings.KeyOffInDark)
		supervisor.Update(c.state.Dark(), offInDark)
		if supervisor.Mode() == power.DarkSave {
			// Coarse poll: no fix processing, no display work. The port is
			// read dry each turn so the tty buffer cannot fill with
			// sentences that would decode stale on wake.
			flusher.Flush()
			c.pollMenuWhileDark()
			time.Sleep(darkSavePoll)
			continue
		}

		// A timeout turn returns zero bytes; errors here are transient
		// (the receiver is soldered on) and surface as empty reads too.
		n, _ := port.Read(chunk)

		for i := 0; i < n; i++ {
			if !c.decoder.Feed(chunk[i]) {
				continue
			}

			fix := c.decoder.Fix()
			c.setLastFix(fix)
			c.telemetry.PublishFix(fix)

			if waiting {
				if !fix.Usable(c.cfg.GPSMinSats, c.cfg.GPSMaxHDOP) {
					continue
				}
				waiting = false
				log.Printf("primary: fix quality ok (sats=%d hdop=%.1f)",
					fix.Satellites, fix.HDOP)
			}

			c.tb.ApplyFix(fix)
		}

		if waiting {
			// Repaint the acquisition screen at most once a second.
			if time.Since(lastWaitingPaint) >= time.Second && c.screen != nil {
				if err := c.screen.ShowWaiting(c.decoder.Fix()); err != nil {
					log.Printf("primary: waiting screen: %v", err)
				}
				lastWaitingPaint = time.Now()
			}
		} else if !c.menuOpen.Load() && c.tb.SecondChanged() {
			if c.screen != nil {
				lt := c.tb.Local()
				if err := c.screen.ShowClock(lt, c.state.Climate(),
					c.store.Bool(settings.KeyMode12h)); err != nil {
					log.Printf("primary: clock repaint: %v", err)
				}
			}
			c.tb.MarkRendered()
		}

		if c.buttons != nil {
			if _, ok := c.buttons.Poll(time.Millisecond); ok {
				c.runMenu()
			}
		}
	}

	return nil
}

// menuIdleTimeout closes an abandoned menu.
const menuIdleTimeout = 10 * time.Second

// runMenu drives the menu state machine until it exits. The menu occupies
// the primary context for its whole lifetime; the secondary context keeps
// running, which is why the brightness dark override special-cases an
// open menu.
func (c *Clock) runMenu() {
	c.menuOpen.Store(true)
	defer c.menuOpen.Store(false)

	m := menu.NewMachine(c.store)
	c.renderMenu(m)

	for m.State() != menu.StateExit && !c.stopped() {
		if c.updating.Load() {
			m.Handle(menu.UpdateAbort)
			break
		}

		btn, ok := c.buttons.Poll(menuIdleTimeout)
		var ev menu.Event
		switch {
		case !ok:
			ev = menu.Timeout
		case btn == sensors.ButtonNext:
			ev = menu.Next
		default:
			ev = menu.Select
		}
		m.Handle(ev)
		c.renderMenu(m)
	}

	if m.ResetRequested() {
		c.restart("Factory reset")
	}
}

// pollMenuWhileDark services the front buttons during DARK_SAVE so the
// operator can still reach the menu from a dark room. The panel is
// unblanked for the menu session and blanked again once it closes; the
// supervisor stays in DARK_SAVE throughout.
func (c *Clock) pollMenuWhileDark() {
	if c.buttons == nil {
		return
	}
	if _, ok := c.buttons.Poll(time.Millisecond); !ok {
		return
	}
	if c.screen != nil {
		if err := c.screen.Unblank(); err != nil {
			log.Printf("primary: unblank for menu: %v", err)
		}
	}
	c.runMenu()
	if c.screen != nil {
		if err := c.screen.Blank(); err != nil {
			log.Printf("primary: reblank after menu: %v", err)
		}
	}
}

func (c *Clock) renderMenu(m *menu.Machine) {
	if c.screen == nil {
		return
	}

	var err error
	if m.State() == menu.StateWifi {
		err = c.screen.ShowQR("Wi-Fi setup", c.provisioningURL())
	} else {
		err = c.screen.ShowLines(m.Lines())
	}
	if err != nil {
		log.Printf("primary: menu screen: %v", err)
	}
}
