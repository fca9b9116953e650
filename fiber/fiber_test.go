package fiber_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-sylar/sylar/fiber"
)

func TestNewFiberRunsCallbackOnSwapIn(t *testing.T) {
	var ran bool
	f := fiber.New(func() { ran = true }, 0, false)
	require.Equal(t, fiber.Init, f.State())
	require.NoError(t, f.SwapIn())
	require.True(t, ran)
	require.Equal(t, fiber.Term, f.State())
}

func TestSwapInRejectsAlreadyExec(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := fiber.New(func() {
		close(started)
		<-release
	}, 0, false)

	go func() { _ = f.SwapIn() }()
	<-started
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, fiber.Exec, f.State())
	err := f.SwapIn()
	require.ErrorIs(t, err, fiber.ErrAlreadyExec)
	close(release)
}

func TestYieldToReadyReturnsControlAndResumes(t *testing.T) {
	var steps []int
	f := fiber.New(func() {
		steps = append(steps, 1)
		fiber.YieldToReady()
		steps = append(steps, 2)
	}, 0, false)

	require.NoError(t, f.SwapIn())
	require.Equal(t, fiber.Ready, f.State())
	require.Equal(t, []int{1}, steps)

	require.NoError(t, f.SwapIn())
	require.Equal(t, fiber.Term, f.State())
	require.Equal(t, []int{1, 2}, steps)
}

func TestResetRequiresResettableState(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := fiber.New(func() {
		close(started)
		<-release
	}, 0, false)

	go func() { _ = f.SwapIn() }()
	<-started
	err := f.Reset(func() {})
	require.ErrorIs(t, err, fiber.ErrNotResettable)
	close(release)
}

func TestResetAllowsReuseAfterTerm(t *testing.T) {
	f := fiber.New(func() {}, 0, false)
	require.NoError(t, f.SwapIn())
	require.Equal(t, fiber.Term, f.State())

	var ran bool
	require.NoError(t, f.Reset(func() { ran = true }))
	require.Equal(t, fiber.Init, f.State())
	require.NoError(t, f.SwapIn())
	require.True(t, ran)
}

func TestPanicTransitionsToExcep(t *testing.T) {
	f := fiber.New(func() { panic("boom") }, 0, false)
	require.NoError(t, f.SwapIn())
	require.Equal(t, fiber.Excep, f.State())
}

func TestCurrentCreatesBootstrapFiberOncePerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	var a, b *fiber.Fiber
	go func() {
		defer wg.Done()
		a = fiber.Current()
		require.Equal(t, a, fiber.Current())
	}()
	go func() {
		defer wg.Done()
		b = fiber.Current()
	}()
	wg.Wait()
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, fiber.Exec, a.State())
}

func TestDefaultStackSizeReflectsConfigDefault(t *testing.T) {
	require.EqualValues(t, 1<<20, fiber.DefaultStackSize())
}
