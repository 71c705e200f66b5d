package daemon

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadPID is a PID that almost certainly does not exist.
const deadPID = 999999

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "state", "serve.pid"))

	require.NoError(t, pf.WritePID(12345))

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)
}

func TestPIDFile_WritePID_CurrentProcess(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))

	require.NoError(t, pf.WritePID(os.Getpid()))

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_Read(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewPIDFile(filepath.Join(dir, "missing.pid")).Read()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	for name, content := range map[string]string{
		"garbage":  "not-a-number\n",
		"zero":     "0\n",
		"negative": "-4\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".pid")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewPIDFile(path).Read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid PID file content")
		})
	}
}

func TestPIDFile_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.pid")
	pf := NewPIDFile(path)
	require.NoError(t, pf.WritePID(1))

	require.NoError(t, pf.Remove())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, pf.Remove(), "removing a missing file is fine")
}

func TestPIDFile_IsRunning(t *testing.T) {
	dir := t.TempDir()

	t.Run("current process", func(t *testing.T) {
		pf := NewPIDFile(filepath.Join(dir, "live.pid"))
		require.NoError(t, pf.WritePID(os.Getpid()))

		pid, running := pf.IsRunning()
		assert.True(t, running)
		assert.Equal(t, os.Getpid(), pid)
	})

	t.Run("dead process", func(t *testing.T) {
		pf := NewPIDFile(filepath.Join(dir, "dead.pid"))
		require.NoError(t, pf.WritePID(deadPID))

		pid, running := pf.IsRunning()
		assert.Equal(t, deadPID, pid)
		assert.False(t, running)
	})

	t.Run("no file", func(t *testing.T) {
		pid, running := NewPIDFile(filepath.Join(dir, "none.pid")).IsRunning()
		assert.Equal(t, 0, pid)
		assert.False(t, running)
	})
}

func TestPIDFile_Claim(t *testing.T) {
	dir := t.TempDir()

	t.Run("live owner", func(t *testing.T) {
		pf := NewPIDFile(filepath.Join(dir, "live.pid"))
		require.NoError(t, pf.WritePID(os.Getpid()))

		err := pf.Claim()
		require.ErrorIs(t, err, ErrAlreadyRunning)
		assert.Contains(t, err.Error(), "already running")
	})

	t.Run("stale file is cleared", func(t *testing.T) {
		path := filepath.Join(dir, "stale.pid")
		pf := NewPIDFile(path)
		require.NoError(t, pf.WritePID(deadPID))

		require.NoError(t, pf.Claim())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("no file", func(t *testing.T) {
		assert.NoError(t, NewPIDFile(filepath.Join(dir, "none.pid")).Claim())
	})
}

func TestPIDFile_WaitExit(t *testing.T) {
	dir := t.TempDir()

	dead := NewPIDFile(filepath.Join(dir, "dead.pid"))
	require.NoError(t, dead.WritePID(deadPID))
	assert.True(t, dead.WaitExit(time.Second, time.Millisecond))

	live := NewPIDFile(filepath.Join(dir, "live.pid"))
	require.NoError(t, live.WritePID(os.Getpid()))
	assert.False(t, live.WaitExit(20*time.Millisecond, 5*time.Millisecond))
}

func TestPIDFile_Signal(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "serve.pid"))
	require.NoError(t, pf.WritePID(os.Getpid()))

	// Signal 0 only checks that the process exists.
	assert.NoError(t, pf.Signal(syscall.Signal(0)))
}

func TestPIDFile_Signal_NoFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "none.pid"))

	err := pf.Signal(syscall.Signal(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PID file")
}
