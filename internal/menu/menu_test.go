package menu

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sat_clock/internal/settings"
)

func newStore(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.txt"))
	require.NoError(t, err)
	return s
}

func TestMainMenuCursorCycles(t *testing.T) {
	m := NewMachine(newStore(t))
	require.Equal(t, StateMain, m.State())

	// Next walks the cursor; the state stays MainMenu.
	for i := 0; i < len(mainItems)+2; i++ {
		require.Equal(t, StateMain, m.Handle(Next))
	}
}

func TestSelectEntersAndLeavesScreens(t *testing.T) {
	m := NewMachine(newStore(t))

	require.Equal(t, StateDisplay, m.Handle(Select))
	require.Equal(t, StateMain, m.Handle(Select))

	m.Handle(Next) // cursor → Alarms
	require.Equal(t, StateAlarms, m.Handle(Select))
}

func TestDisplayTogglesAutoBright(t *testing.T) {
	store := newStore(t)
	m := NewMachine(store)
	require.True(t, store.Bool(settings.KeyAutoBright))

	m.Handle(Select) // enter Display
	m.Handle(Next)   // toggle
	require.False(t, store.Bool(settings.KeyAutoBright))
	m.Handle(Next)
	require.True(t, store.Bool(settings.KeyAutoBright))
}

func TestAlarmsTogglePersists(t *testing.T) {
	store := newStore(t)
	m := NewMachine(store)

	m.Handle(Next)   // cursor → Alarms
	m.Handle(Select) // enter
	require.Equal(t, StateAlarms, m.State())

	m.Handle(Select) // toggle hourly chime
	require.True(t, store.Bool(settings.KeyHourlyAlarm))

	m.Handle(Next)   // cursor → half-hourly
	m.Handle(Select) // toggle it
	require.True(t, store.Bool(settings.KeyHalfHourlyAlarm))
}

func TestAlarmsBackReturnsToMain(t *testing.T) {
	store := newStore(t)
	m := NewMachine(store)

	m.Handle(Next)   // cursor → Alarms
	m.Handle(Select) // enter
	require.Equal(t, StateAlarms, m.State())

	for i := 0; i < len(alarmItems); i++ { // cursor → Back
		m.Handle(Next)
	}
	require.Equal(t, []string{"Alarms", "> Back"}, m.Lines())
	require.Equal(t, StateMain, m.Handle(Select))

	// Selecting Back leaves the toggles alone.
	require.False(t, store.Bool(settings.KeyHourlyAlarm))
}

func TestModeToggles12h(t *testing.T) {
	store := newStore(t)
	m := NewMachine(store)

	for i := 0; i < 3; i++ { // cursor → Mode
		m.Handle(Next)
	}
	require.Equal(t, StateMode, m.Handle(Select))
	m.Handle(Next)
	require.True(t, store.Bool(settings.KeyMode12h))
	require.Equal(t, StateMain, m.Handle(Select))
}

func TestTimeoutExitsFromAnywhere(t *testing.T) {
	for presses := 0; presses < 8; presses++ {
		m := NewMachine(newStore(t))
		for i := 0; i < presses; i++ {
			m.Handle(Next)
		}
		m.Handle(Select)
		require.Equal(t, StateExit, m.Handle(Timeout))
	}
}

func TestUpdateAbortExitsImmediately(t *testing.T) {
	m := NewMachine(newStore(t))
	m.Handle(Select) // somewhere inside
	require.Equal(t, StateExit, m.Handle(UpdateAbort))
	require.False(t, m.ResetRequested())
}

func TestResetConfirmFlow(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SetBool(settings.KeyMode12h, true))

	m := NewMachine(store)
	for i := 0; i < 5; i++ { // cursor → Reset
		m.Handle(Next)
	}
	require.Equal(t, StateReset, m.Handle(Select))

	require.Equal(t, StateExit, m.Handle(Select))
	require.True(t, m.ResetRequested())
	require.False(t, store.Bool(settings.KeyMode12h), "reset restores defaults")
}

func TestResetBackedOut(t *testing.T) {
	m := NewMachine(newStore(t))
	for i := 0; i < 5; i++ {
		m.Handle(Next)
	}
	m.Handle(Select) // enter Reset
	require.Equal(t, StateMain, m.Handle(Next))
	require.False(t, m.ResetRequested())
}

func TestExitFromMainMenu(t *testing.T) {
	m := NewMachine(newStore(t))
	for i := 0; i < len(mainItems)-1; i++ { // cursor → Exit
		m.Handle(Next)
	}
	require.Equal(t, StateExit, m.Handle(Select))
}

func TestLinesNeverEmptyWhileOpen(t *testing.T) {
	m := NewMachine(newStore(t))
	for _, st := range []State{StateMain, StateDisplay, StateAlarms, StateWifi, StateMode, StateAbout, StateReset} {
		m.state = st
		require.NotEmpty(t, m.Lines(), "state %s", st)
	}
}
