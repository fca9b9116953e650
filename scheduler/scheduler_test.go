package scheduler_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sylar/sylar/scheduler"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsCallback(t *testing.T) {
	s := scheduler.NewScheduler(2, false, "t1")
	done := make(chan struct{})
	require.NoError(t, s.Schedule(func() { close(done) }))
	go s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
	s.Stop()
}

func TestScheduleAfterStopReturnsError(t *testing.T) {
	s := scheduler.NewScheduler(1, false, "t2")
	go s.Start()
	s.Stop()
	err := s.Schedule(func() {})
	require.ErrorIs(t, err, scheduler.ErrShutdown)
}

func TestManyCallbacksAllRun(t *testing.T) {
	s := scheduler.NewScheduler(4, false, "t3")
	const n = 200
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, s.Schedule(func() {
			count.Add(1)
			wg.Done()
		}))
	}
	go s.Start()

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("only %d/%d callbacks ran", count.Load(), n)
	}
	require.EqualValues(t, n, count.Load())
	s.Stop()
}

// TestSelfReschedulingPinnedToWorker exercises a 3-thread scheduler
// with a callback that decrements a shared counter initialized to 5
// and re-submits itself pinned to its own worker id.
// After Stop completes, the counter is 0 and all 5 invocations ran on
// the same worker.
func TestSelfReschedulingPinnedToWorker(t *testing.T) {
	s := scheduler.NewScheduler(3, false, "t4")
	counter := 5
	var firstWorker int
	var seenFirst bool
	done := make(chan struct{})

	var step func()
	step = func() {
		wid, ok := s.CurrentWorkerID()
		require.True(t, ok)
		if !seenFirst {
			firstWorker = wid
			seenFirst = true
		} else {
			require.Equal(t, firstWorker, wid)
		}
		counter--
		if counter == 0 {
			close(done)
			return
		}
		_ = s.Schedule(step, int64(wid))
	}
	require.NoError(t, s.Schedule(step))
	go s.Start()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("self-rescheduling chain never completed")
	}
	require.Equal(t, 0, counter)
	s.Stop()
}

func TestUseCallerBlocksUntilStop(t *testing.T) {
	s := scheduler.NewScheduler(2, true, "t5")
	started := make(chan struct{})
	require.NoError(t, s.Schedule(func() { close(started) }))

	returned := make(chan struct{})
	go func() {
		s.Start()
		close(returned)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("use_caller scheduler never ran scheduled task")
	}

	select {
	case <-returned:
		t.Fatal("Start returned before Stop was called")
	case <-time.After(50 * time.Millisecond):
	}

	s.Stop()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
