//go:build linux

// Package ioruntime implements an epoll-driven I/O reactor: IOManager
// extends scheduler.Scheduler by overriding its
// Tickle/IdleWait/ExtraStopping hooks to park fibers on file
// descriptor readiness instead of busy-waiting on the task queue's
// condition variable.
//
// This package is Linux-only, built on unix.EpollCreate1/EpollCtl/
// EpollWait and unix.Eventfd.
package ioruntime

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"github.com/go-sylar/sylar/config"
	"github.com/go-sylar/sylar/fiber"
	"github.com/go-sylar/sylar/logpipe"
	"github.com/go-sylar/sylar/scheduler"
)

var log = logpipe.Get("ioruntime")

const initialFDTableSize = 32

var idleTimeout, _ = config.Lookup[time.Duration]("ioruntime.idle_timeout", 3*time.Second,
	"bound on each epoll_wait call made by an idle worker")

var maxArmedEvents, _ = config.Lookup[int64]("ioruntime.max_armed_events", 1<<16,
	"upper bound on events armed concurrently across all fds, enforced by a weighted semaphore")

// IOManager extends scheduler.Scheduler with an epoll readiness set, a
// self-pipe (here, an eventfd) tickle channel, and a per-fd context
// table.
type IOManager struct {
	*scheduler.Scheduler

	epfd     int
	tickleFD int

	fdsMu sync.RWMutex
	fds   []*fdContext

	pending atomic.Int64

	// armSem bounds the number of events armed concurrently across all
	// fds, so a runaway caller can't grow the fd table and the
	// pending-event count without limit.
	armSem *semaphore.Weighted
}

// NewIOManager constructs an IOManager: an epoll instance, an eventfd
// tickle channel registered for edge-triggered readiness, and an
// initially-32-slot fd context table. It wires its hooks into the
// embedded Scheduler so Start/Stop/Schedule behave exactly as
// documented in the scheduler package, with I/O readiness layered on
// top.
func NewIOManager(threadCount int, useCaller bool, name string) (*IOManager, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("ioruntime: epoll_create1: %w", err)
	}
	tickleFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("ioruntime: eventfd: %w", err)
	}

	m := &IOManager{
		Scheduler: scheduler.NewScheduler(threadCount, useCaller, name),
		epfd:      epfd,
		tickleFD:  tickleFD,
		fds:       make([]*fdContext, initialFDTableSize),
		armSem:    semaphore.NewWeighted(maxArmedEvents.Value()),
	}

	tickleEv := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(tickleFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, tickleFD, &tickleEv); err != nil {
		_ = unix.Close(tickleFD)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("ioruntime: arm tickle fd: %w", err)
	}

	m.Scheduler.Tickle = m.tickle
	m.Scheduler.IdleWait = m.idleWait
	m.Scheduler.ExtraStopping = m.extraStopping
	return m, nil
}

// Close releases the epoll instance and the tickle eventfd. Call it
// after Stop has returned.
func (m *IOManager) Close() error {
	err1 := unix.Close(m.tickleFD)
	err2 := unix.Close(m.epfd)
	if err1 != nil {
		return err1
	}
	return err2
}

// PendingEvents reports the current value of the pending-event
// counter: the number of armed events not yet fired or cancelled.
func (m *IOManager) PendingEvents() int64 { return m.pending.Load() }

func (m *IOManager) extraStopping() bool {
	return m.pending.Load() == 0
}

func (m *IOManager) tickle() {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(m.tickleFD, buf[:])
}

// growTo ensures m.fds has an entry for fd, growing by ceil(cur*1.5)
// each time it needs to expand.
func (m *IOManager) growTo(fd int) {
	m.fdsMu.RLock()
	big := fd < len(m.fds)
	m.fdsMu.RUnlock()
	if big {
		return
	}

	m.fdsMu.Lock()
	defer m.fdsMu.Unlock()
	for fd >= len(m.fds) {
		cur := len(m.fds)
		next := (cur*3 + 1) / 2 // ceil(cur * 1.5)
		if next <= cur {
			next = cur + 1
		}
		grown := make([]*fdContext, next)
		copy(grown, m.fds)
		m.fds = grown
	}
}

func (m *IOManager) contextFor(fd int, create bool) *fdContext {
	m.growTo(fd)
	m.fdsMu.RLock()
	ctx := m.fds[fd]
	m.fdsMu.RUnlock()
	if ctx != nil || !create {
		return ctx
	}

	m.fdsMu.Lock()
	defer m.fdsMu.Unlock()
	if m.fds[fd] == nil {
		m.fds[fd] = &fdContext{fd: fd}
	}
	return m.fds[fd]
}

func epollFlags(armed Event) uint32 {
	var f uint32
	if armed&EventRead != 0 {
		f |= unix.EPOLLIN
	}
	if armed&EventWrite != 0 {
		f |= unix.EPOLLOUT
	}
	return f | unix.EPOLLET
}

func firedEvents(epollEvents uint32) Event {
	var e Event
	if epollEvents&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		e |= EventRead
	}
	if epollEvents&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		e |= EventWrite
	}
	return e
}

// AddEvent arms ev on fd, resuming either cb (if non-nil) or the
// calling fiber when fd becomes ready. It never blocks. Arming an
// already-armed (fd, ev) pair is a programming bug, not a recoverable
// condition: it is logged at error level and then panics.
func (m *IOManager) AddEvent(fd int, ev Event, cb func()) error {
	ctx := m.contextFor(fd, true)
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.armed&ev != 0 {
		log.Errorf(0, 0, "AddEvent: fd %d event %v already armed", fd, ev)
		panic(ErrDoubleArm)
	}
	if !m.armSem.TryAcquire(1) {
		return ErrTooManyArmed
	}
	op := unix.EPOLL_CTL_ADD
	if ctx.armed != 0 {
		op = unix.EPOLL_CTL_MOD
	}
	newArmed := ctx.armed | ev
	epEv := unix.EpollEvent{Events: epollFlags(newArmed), Fd: int32(fd)}
	if err := unix.EpollCtl(m.epfd, op, fd, &epEv); err != nil {
		m.armSem.Release(1)
		return fmt.Errorf("ioruntime: epoll_ctl: %w", err)
	}
	ctx.armed = newArmed

	ec := &eventContext{sched: m.Scheduler}
	if cb != nil {
		ec.cb = cb
	} else {
		ec.fib = fiber.Current()
	}
	*ctx.contextFor(ev) = ec
	m.pending.Add(1)
	return nil
}

// DelEvent disarms ev on fd without firing its resume-token.
func (m *IOManager) DelEvent(fd int, ev Event) error {
	ctx := m.contextFor(fd, false)
	if ctx == nil {
		return ErrNotArmed
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.armed&ev == 0 {
		return ErrNotArmed
	}
	*ctx.contextFor(ev) = nil
	err := m.reregisterLocked(ctx, ctx.armed&^ev)
	m.pending.Add(-1)
	m.armSem.Release(1)
	return err
}

// CancelEvent disarms ev on fd like DelEvent, but fires its
// resume-token exactly once, for surfacing cancellation or timeout.
func (m *IOManager) CancelEvent(fd int, ev Event) error {
	ctx := m.contextFor(fd, false)
	if ctx == nil {
		return ErrNotArmed
	}
	ctx.mu.Lock()
	if ctx.armed&ev == 0 {
		ctx.mu.Unlock()
		return ErrNotArmed
	}
	ec := *ctx.contextFor(ev)
	*ctx.contextFor(ev) = nil
	err := m.reregisterLocked(ctx, ctx.armed&^ev)
	ctx.mu.Unlock()
	m.trigger(ec)
	return err
}

// CancelAll unregisters fd entirely and fires every armed event's
// resume-token.
func (m *IOManager) CancelAll(fd int) error {
	ctx := m.contextFor(fd, false)
	if ctx == nil {
		return nil
	}
	ctx.mu.Lock()
	var toFire []*eventContext
	if ctx.armed&EventRead != 0 && ctx.read != nil {
		toFire = append(toFire, ctx.read)
		ctx.read = nil
	}
	if ctx.armed&EventWrite != 0 && ctx.write != nil {
		toFire = append(toFire, ctx.write)
		ctx.write = nil
	}
	ctx.armed = 0
	err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	ctx.mu.Unlock()
	for _, ec := range toFire {
		m.trigger(ec)
	}
	if err != nil {
		return fmt.Errorf("ioruntime: epoll_ctl del: %w", err)
	}
	return nil
}

// reregisterLocked updates the epoll registration for ctx to reflect
// newArmed, or removes it entirely if newArmed is zero. Caller must
// hold ctx.mu and is responsible for adjusting the pending-event
// counter itself - this only touches the readiness backend.
func (m *IOManager) reregisterLocked(ctx *fdContext, newArmed Event) error {
	ctx.armed = newArmed
	if newArmed == 0 {
		return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, ctx.fd, nil)
	}
	epEv := unix.EpollEvent{Events: epollFlags(newArmed), Fd: int32(ctx.fd)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, ctx.fd, &epEv)
}

// trigger decrements the pending counter, releases the arm semaphore
// slot it held, and resubmits ec's resume-token to the scheduler. ec
// may be nil if the event fired concurrently with a Del/Cancel that
// already cleared it.
func (m *IOManager) trigger(ec *eventContext) {
	if ec == nil {
		return
	}
	m.pending.Add(-1)
	m.armSem.Release(1)
	if ec.cb != nil {
		_ = ec.sched.Schedule(ec.cb)
		return
	}
	_ = ec.sched.ScheduleFiber(ec.fib)
}

// idleWait is the IOManager's override of scheduler.Scheduler.IdleWait:
// one bounded epoll_wait call, draining the tickle fd or dispatching
// ready fd events. Thread affinity is held only around the blocking
// syscall itself, so LockOSThread doesn't pin the whole idle fiber
// body to one OS thread.
func (m *IOManager) idleWait(int) {
	timeoutMs := int(idleTimeout.Value() / time.Millisecond)
	if timeoutMs <= 0 {
		timeoutMs = 1
	}

	var events [64]unix.EpollEvent
	runtime.LockOSThread()
	n, err := unix.EpollWait(m.epfd, events[:], timeoutMs)
	runtime.UnlockOSThread()
	if err != nil {
		if err == unix.EINTR {
			return
		}
		log.Errorf(0, 0, "epoll_wait: %v", err)
		return
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		if fd == m.tickleFD {
			m.drainTickle()
			continue
		}
		m.handleReady(fd, events[i].Events)
	}
}

func (m *IOManager) drainTickle() {
	var buf [8]byte
	for {
		_, err := unix.Read(m.tickleFD, buf[:])
		if err != nil {
			return
		}
	}
}

func (m *IOManager) handleReady(fd int, epollEvents uint32) {
	ctx := m.contextFor(fd, false)
	if ctx == nil {
		return
	}
	ctx.mu.Lock()
	fired := firedEvents(epollEvents) & ctx.armed
	var toTrigger []*eventContext
	if fired&EventRead != 0 {
		toTrigger = append(toTrigger, ctx.read)
		ctx.read = nil
	}
	if fired&EventWrite != 0 {
		toTrigger = append(toTrigger, ctx.write)
		ctx.write = nil
	}
	remaining := ctx.armed &^ fired
	if remaining != ctx.armed {
		ctx.armed = remaining
		if remaining == 0 {
			_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		} else {
			epEv := unix.EpollEvent{Events: epollFlags(remaining), Fd: int32(fd)}
			_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &epEv)
		}
	}
	ctx.mu.Unlock()

	for _, ec := range toTrigger {
		m.trigger(ec)
	}
}
