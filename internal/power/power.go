// Package power couples CPU clocking and display power into a two-state
// supervisor. Repainting a blanked panel is wasted work, and satellite
// bytes buffered while the CPU is slowed would only decode into stale
// fixes, so the two switch together.
package power

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Mode is the supervisor state.
type Mode int

const (
	Normal Mode = iota
	DarkSave
)

func (m Mode) String() string {
	if m == DarkSave {
		return "DARK_SAVE"
	}
	return "NORMAL"
}

// CPU switches the processor between full speed and a power-saving clock.
type CPU interface {
	SetPowersave() error
	SetPerformance() error
}

// Screen blanks and restores the display output.
type Screen interface {
	Blank() error
	Unblank() error
}

// Flusher discards any buffered, now-useless satellite input. Invoked on
// both transition edges: entry drops sentences that predate the blank,
// exit drops the backlog that piled up while the loop was coasting, so the
// first fix decoded after a wake was actually received after it.
type Flusher interface {
	Flush()
}

// Supervisor drives the NORMAL ↔ DARK_SAVE transitions. It runs in the
// primary context, synchronously with repaint suppression.
type Supervisor struct {
	cpu    CPU
	screen Screen
	flush  Flusher
	mode   Mode
}

func NewSupervisor(cpu CPU, screen Screen, flush Flusher) *Supervisor {
	return &Supervisor{cpu: cpu, screen: screen, flush: flush}
}

// Mode returns the current state.
func (s *Supervisor) Mode() Mode { return s.mode }

// Update applies the dark/off-in-dark condition and performs the
// transition side effects on the edges. Returns true when the mode changed
// this call.
func (s *Supervisor) Update(dark, offInDark bool) bool {
	want := Normal
	if dark && offInDark {
		want = DarkSave
	}
	if want == s.mode {
		return false
	}

	if want == DarkSave {
		if err := s.cpu.SetPowersave(); err != nil {
			log.Printf("power: cpu powersave: %v", err)
		}
		if err := s.screen.Blank(); err != nil {
			log.Printf("power: blank display: %v", err)
		}
		s.flush.Flush()
	} else {
		if err := s.cpu.SetPerformance(); err != nil {
			log.Printf("power: cpu performance: %v", err)
		}
		if err := s.screen.Unblank(); err != nil {
			log.Printf("power: unblank display: %v", err)
		}
		s.flush.Flush()
	}

	s.mode = want
	log.Printf("power: entering %s", want)
	return true
}

// SysfsCPU adjusts the CPU clock via the cpufreq scaling governor.
type SysfsCPU struct {
	// GovernorPath is the sysfs node; the default covers the Pi.
	GovernorPath string
	// Performance is the governor used in NORMAL mode ("ondemand" keeps
	// idle draw low while letting the decoder keep up).
	Performance string
}

const defaultGovernorPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"

func NewSysfsCPU() *SysfsCPU {
	return &SysfsCPU{GovernorPath: defaultGovernorPath, Performance: "ondemand"}
}

func (c *SysfsCPU) SetPowersave() error   { return c.write("powersave") }
func (c *SysfsCPU) SetPerformance() error { return c.write(c.Performance) }

func (c *SysfsCPU) write(governor string) error {
	if err := os.WriteFile(c.GovernorPath, []byte(strings.TrimSpace(governor)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s to %s: %w", governor, c.GovernorPath, err)
	}
	return nil
}
