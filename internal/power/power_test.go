package power

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCPU struct{ calls []string }

func (f *fakeCPU) SetPowersave() error   { f.calls = append(f.calls, "powersave"); return nil }
func (f *fakeCPU) SetPerformance() error { f.calls = append(f.calls, "performance"); return nil }

type fakeScreen struct{ calls []string }

func (f *fakeScreen) Blank() error   { f.calls = append(f.calls, "blank"); return nil }
func (f *fakeScreen) Unblank() error { f.calls = append(f.calls, "unblank"); return nil }

type fakeFlusher struct{ flushes int }

func (f *fakeFlusher) Flush() { f.flushes++ }

func TestSupervisorTransitions(t *testing.T) {
	cpu := &fakeCPU{}
	screen := &fakeScreen{}
	flush := &fakeFlusher{}
	s := NewSupervisor(cpu, screen, flush)

	require.Equal(t, Normal, s.Mode())

	// Dark alone is not enough.
	require.False(t, s.Update(true, false))
	require.Equal(t, Normal, s.Mode())
	require.Empty(t, cpu.calls)

	// Dark with off-in-dark enters DARK_SAVE with all three effects.
	require.True(t, s.Update(true, true))
	require.Equal(t, DarkSave, s.Mode())
	require.Equal(t, []string{"powersave"}, cpu.calls)
	require.Equal(t, []string{"blank"}, screen.calls)
	require.Equal(t, 1, flush.flushes)

	// Steady state is a no-op.
	require.False(t, s.Update(true, true))
	require.Equal(t, 1, flush.flushes)

	// Light again restores clock and display, and flushes once more: the
	// serial backlog that accumulated while coasting must not decode as
	// fresh fixes after the wake.
	require.True(t, s.Update(false, true))
	require.Equal(t, Normal, s.Mode())
	require.Equal(t, []string{"powersave", "performance"}, cpu.calls)
	require.Equal(t, []string{"blank", "unblank"}, screen.calls)
	require.Equal(t, 2, flush.flushes)
}

func TestSupervisorExitsWhenSettingDisabled(t *testing.T) {
	cpu := &fakeCPU{}
	screen := &fakeScreen{}
	s := NewSupervisor(cpu, screen, &fakeFlusher{})

	require.True(t, s.Update(true, true))
	// Operator turns off-in-dark off while the room is still dark.
	require.True(t, s.Update(true, false))
	require.Equal(t, Normal, s.Mode())
}

func TestSysfsCPUWritesGovernor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaling_governor")
	require.NoError(t, os.WriteFile(path, []byte("ondemand\n"), 0o644))

	cpu := &SysfsCPU{GovernorPath: path, Performance: "ondemand"}

	require.NoError(t, cpu.SetPowersave())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "powersave\n", string(data))

	require.NoError(t, cpu.SetPerformance())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ondemand\n", string(data))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "NORMAL", Normal.String())
	require.Equal(t, "DARK_SAVE", DarkSave.String())
}
