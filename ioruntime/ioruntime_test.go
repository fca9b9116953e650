//go:build linux

package ioruntime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/go-sylar/sylar/config"
	"github.com/go-sylar/sylar/ioruntime"
)

func pipeFDs(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	return fds[0], fds[1]
}

func TestAddEventFiresCallbackOnReadiness(t *testing.T) {
	m, err := ioruntime.NewIOManager(2, false, "io1")
	require.NoError(t, err)
	defer m.Close()

	r, w := pipeFDs(t)
	defer unix.Close(r)
	defer unix.Close(w)

	done := make(chan struct{})
	require.NoError(t, m.AddEvent(r, ioruntime.EventRead, func() { close(done) }))
	require.EqualValues(t, 1, m.PendingEvents())

	go m.Start()
	defer m.Stop()

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("read readiness callback never fired")
	}
}

func TestAddEventDoubleArmRejected(t *testing.T) {
	m, err := ioruntime.NewIOManager(1, false, "io2")
	require.NoError(t, err)
	defer m.Close()

	r, w := pipeFDs(t)
	defer unix.Close(r)
	defer unix.Close(w)

	require.NoError(t, m.AddEvent(r, ioruntime.EventRead, func() {}))
	require.PanicsWithValue(t, ioruntime.ErrDoubleArm, func() {
		_ = m.AddEvent(r, ioruntime.EventRead, func() {})
	})
}

func TestDelEventDoesNotFire(t *testing.T) {
	m, err := ioruntime.NewIOManager(1, false, "io3")
	require.NoError(t, err)
	defer m.Close()

	r, w := pipeFDs(t)
	defer unix.Close(r)
	defer unix.Close(w)

	fired := false
	require.NoError(t, m.AddEvent(r, ioruntime.EventRead, func() { fired = true }))
	require.NoError(t, m.DelEvent(r, ioruntime.EventRead))
	require.EqualValues(t, 0, m.PendingEvents())

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	go m.Start()
	time.Sleep(100 * time.Millisecond)
	m.Stop()
	require.False(t, fired)
}

func TestAddEventRejectedOverArmCeiling(t *testing.T) {
	maxArmed, ok := config.Lookup[int64]("ioruntime.max_armed_events", 1<<16, "")
	require.True(t, ok)
	prev := maxArmed.Value()
	maxArmed.Set(1)
	defer maxArmed.Set(prev)

	m, err := ioruntime.NewIOManager(1, false, "io5")
	require.NoError(t, err)
	defer m.Close()

	r1, w1 := pipeFDs(t)
	defer unix.Close(r1)
	defer unix.Close(w1)
	r2, w2 := pipeFDs(t)
	defer unix.Close(r2)
	defer unix.Close(w2)

	require.NoError(t, m.AddEvent(r1, ioruntime.EventRead, func() {}))
	err = m.AddEvent(r2, ioruntime.EventRead, func() {})
	require.ErrorIs(t, err, ioruntime.ErrTooManyArmed)

	require.NoError(t, m.DelEvent(r1, ioruntime.EventRead))
	require.NoError(t, m.AddEvent(r2, ioruntime.EventRead, func() {}))
}

func TestCancelEventFiresOnce(t *testing.T) {
	m, err := ioruntime.NewIOManager(1, false, "io4")
	require.NoError(t, err)
	defer m.Close()

	r, w := pipeFDs(t)
	defer unix.Close(r)
	defer unix.Close(w)

	calls := 0
	require.NoError(t, m.AddEvent(r, ioruntime.EventRead, func() { calls++ }))
	require.NoError(t, m.CancelEvent(r, ioruntime.EventRead))
	require.EqualValues(t, 0, m.PendingEvents())

	go m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()
	require.Equal(t, 1, calls)
}
