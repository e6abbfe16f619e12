// Package menu is the settings menu as an explicit finite-state machine:
// named states, Next/Select/Timeout/UpdateAbort events, no blocking loops.
// The driver (primary context) polls buttons, translates presses into
// events, and renders whatever Lines reports after each transition.
package menu

import (
	"fmt"
	"log"

	"github.com/relabs-tech/sat_clock/internal/settings"
)

// State names one menu screen.
type State int

const (
	StateMain State = iota
	StateDisplay
	StateAlarms
	StateWifi
	StateMode
	StateAbout
	StateReset
	StateExit
)

func (s State) String() string {
	switch s {
	case StateMain:
		return "MainMenu"
	case StateDisplay:
		return "Display"
	case StateAlarms:
		return "Alarms"
	case StateWifi:
		return "Wifi"
	case StateMode:
		return "Mode"
	case StateAbout:
		return "About"
	case StateReset:
		return "Reset"
	default:
		return "Exit"
	}
}

// Event is a menu input.
type Event int

const (
	Next Event = iota
	Select
	Timeout
	UpdateAbort
)

// mainItems is the MainMenu cursor order; the last entry leaves the menu.
var mainItems = []State{StateDisplay, StateAlarms, StateWifi, StateMode, StateAbout, StateReset, StateExit}

// alarmItems are the toggles the Alarms screen cycles through.
var alarmItems = []string{
	settings.KeyHourlyAlarm,
	settings.KeyHalfHourlyAlarm,
	settings.KeyMuteDark,
	settings.KeyOffInDark,
}

var alarmLabels = []string{"Hourly chime", "Half-hour chime", "Mute in dark", "Off in dark"}

// Machine is the menu state machine. It mutates the settings store
// directly; every confirmed change persists immediately.
type Machine struct {
	store *settings.Store

	state       State
	mainCursor  int
	alarmCursor int

	resetRequested bool
}

func NewMachine(store *settings.Store) *Machine {
	return &Machine{store: store}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// ResetRequested reports whether the operator confirmed a factory reset;
// the driver restarts the process once the menu closes.
func (m *Machine) ResetRequested() bool { return m.resetRequested }

// Handle feeds one event through the machine and returns the new state.
// Timeout and UpdateAbort exit from every state: an idle operator or an
// in-progress firmware update must never hold the menu open.
func (m *Machine) Handle(ev Event) State {
	if ev == Timeout || ev == UpdateAbort {
		m.state = StateExit
		return m.state
	}

	switch m.state {
	case StateMain:
		if ev == Next {
			m.mainCursor = (m.mainCursor + 1) % len(mainItems)
		} else {
			m.state = mainItems[m.mainCursor]
			if m.state == StateAlarms {
				m.alarmCursor = 0
			}
		}

	case StateDisplay:
		if ev == Next {
			m.toggle(settings.KeyAutoBright)
		} else {
			m.state = StateMain
		}

	case StateAlarms:
		// The cursor ring is the four toggles plus a trailing Back entry.
		switch {
		case ev == Next:
			m.alarmCursor = (m.alarmCursor + 1) % (len(alarmItems) + 1)
		case m.alarmCursor == len(alarmItems):
			m.state = StateMain
		default:
			m.toggle(alarmItems[m.alarmCursor])
		}

	case StateMode:
		if ev == Next {
			m.toggle(settings.KeyMode12h)
		} else {
			m.state = StateMain
		}

	case StateWifi, StateAbout:
		// Informational screens; any press returns.
		m.state = StateMain

	case StateReset:
		if ev == Select {
			if err := m.store.Reset(); err != nil {
				log.Printf("menu: settings reset: %v", err)
			}
			m.resetRequested = true
			m.state = StateExit
		} else {
			m.state = StateMain
		}

	case StateExit:
		// Terminal; the driver closes the menu.
	}

	return m.state
}

func (m *Machine) toggle(key string) {
	if err := m.store.SetBool(key, !m.store.Bool(key)); err != nil {
		log.Printf("menu: persist %s: %v", key, err)
	}
}

// Lines returns the text of the current screen, one display row per entry.
func (m *Machine) Lines() []string {
	onOff := func(key string) string {
		if m.store.Bool(key) {
			return "on"
		}
		return "off"
	}

	switch m.state {
	case StateMain:
		return []string{"Menu", "> " + mainItems[m.mainCursor].String()}
	case StateDisplay:
		return []string{"Display", "Auto bright: " + onOff(settings.KeyAutoBright),
			fmt.Sprintf("Level: %d", m.store.Int(settings.KeyBacklight))}
	case StateAlarms:
		if m.alarmCursor == len(alarmItems) {
			return []string{"Alarms", "> Back"}
		}
		return []string{"Alarms",
			"> " + alarmLabels[m.alarmCursor] + ": " + onOff(alarmItems[m.alarmCursor])}
	case StateWifi:
		return []string{"Wi-Fi setup", "scan the code"}
	case StateMode:
		mode := "24h"
		if m.store.Bool(settings.KeyMode12h) {
			mode = "12h"
		}
		return []string{"Clock mode", "Format: " + mode}
	case StateAbout:
		return []string{"sat_clock", "GPS wall clock"}
	case StateReset:
		return []string{"Factory reset", "Select = confirm", "Next = back"}
	default:
		return nil
	}
}
