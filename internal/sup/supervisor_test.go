package sup_test

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/whaleinit/whaleinit/internal/model"
	"github.com/whaleinit/whaleinit/internal/sup"
)

// echildWait is a reaper stub for tests that run real child processes: a
// broad wait4(-1) would steal exit notifications from other tests in this
// binary.
func echildWait(_ *unix.WaitStatus) (int, error) {
	return 0, unix.ECHILD
}

func TestSupervisorRunsAllServices(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	rec := &recorder{}
	sent := &sentRecorder{}

	services := []model.ServiceConfig{
		{Title: "quick", Exec: sh, Args: []string{"-c", "echo hello"}},
		{Title: "ghost", Exec: "/does/not/exist"},
		{Title: "core", Exec: sh, Args: []string{"-c", "sleep 1"}, Essential: true},
	}

	supervisor := sup.New(rec.logger(), services).
		WithBroadcast(sent.broadcast).
		WithReaper(sup.NewReaper(rec.logger()).WithWait(echildWait))

	started := time.Now()
	err = supervisor.Run(t.Context())
	require.NoError(t, err)

	t.Run("does not terminate before the essential service", func(t *testing.T) {
		// "quick" exits immediately, the run still lasts until "core" does
		require.GreaterOrEqual(t, time.Since(started), 900*time.Millisecond)
	})

	t.Run("healthy services ran and logged", func(t *testing.T) {
		require.Equal(t, []string{"hello"}, rec.lines("quick", "stdout"))
		require.GreaterOrEqual(t, rec.index("service started", "quick"), 0)
		require.GreaterOrEqual(t, rec.index("service started", "core"), 0)
	})

	t.Run("launch failure is confined to its service", func(t *testing.T) {
		failures := rec.find("failed to handle service")
		require.Len(t, failures, 1)
		require.Equal(t, "ghost", failures[0].attrs["service"])
		require.Equal(t, -1, rec.index("service started", "ghost"))
	})

	t.Run("essential exit escalated once", func(t *testing.T) {
		require.Equal(t, []syscall.Signal{unix.SIGTERM}, sent.signals())
	})
}

func TestSupervisorTwoEssentialServices(t *testing.T) {
	t.Parallel()
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skipf("skipped, binary true not available: %v", err)
	}

	rec := &recorder{}
	sent := &sentRecorder{}

	services := []model.ServiceConfig{
		{Title: "one", Exec: truePath, Essential: true},
		{Title: "two", Exec: truePath, Essential: true},
	}

	supervisor := sup.New(rec.logger(), services).
		WithBroadcast(sent.broadcast).
		WithReaper(sup.NewReaper(rec.logger()).WithWait(echildWait))

	require.NoError(t, supervisor.Run(t.Context()))

	// both exits race into the escalator, only the first one broadcasts
	require.Equal(t, []syscall.Signal{unix.SIGTERM}, sent.signals())
	require.Len(t, rec.find("essential service exited"), 2)
}

func TestSupervisorNoServices(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	sent := &sentRecorder{}

	supervisor := sup.New(rec.logger(), nil).
		WithBroadcast(sent.broadcast).
		WithReaper(sup.NewReaper(rec.logger()).WithWait(echildWait))

	require.NoError(t, supervisor.Run(t.Context()))
	require.Empty(t, sent.signals())
}
