// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim is an in-memory multi-core machine the monitor can run on.
// Each core is a goroutine; the power controller starts and stops them the
// way a real one releases cores from reset and gates their power.
package sim

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/topology"
)

// Hook names recorded in Call.Op.
const (
	OpOn            = "on"
	OpOff           = "off"
	OpSuspend       = "suspend"
	OpOnFinish      = "on_finish"
	OpSuspendFinish = "suspend_finish"
	OpPowerDown     = "power_down"
	OpWake          = "wake"
	OpSystemOff     = "system_off"
	OpSystemReset   = "system_reset"
)

// Call is one recorded platform event.
type Call struct {
	Op    string
	MPIDR arch.MPIDR
	Level uint
	State psci.State
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%v, level %d, %v)", c.Op, c.MPIDR, c.Level, c.State)
}

// Entry is an exception return into a lower level as seen by the machine.
type Entry struct {
	MPIDR arch.MPIDR
	PC    uint64
	SPSR  uint64
	SCR   uint64
	X0    uint64
}

// WarmBooter is the code a core runs when it is released at the warm boot
// entry point.
type WarmBooter interface {
	WarmBoot(cpu arch.CPU)
}

type failKey struct {
	op    string
	level uint
}

// Machine implements psci.Platform and psci.SystemPower.
type Machine struct {
	cores map[arch.MPIDR]*Core
	warm  WarmBooter
	g     errgroup.Group

	mu      sync.Mutex
	calls   []Call
	entries []Entry
	fail    map[failKey]error
	hold    bool
	held    []arch.MPIDR
}

var (
	_ psci.Platform    = (*Machine)(nil)
	_ psci.SystemPower = (*Machine)(nil)
)

// Option configures a Machine.
type Option func(*Machine)

// WithoutEL2 makes every core report that EL2 is not implemented.
func WithoutEL2() Option {
	return func(m *Machine) {
		for _, c := range m.cores {
			c.pfr0 = pfr0EL1Only
		}
	}
}

// New builds a machine with one powered off core per present core of topo.
func New(topo *topology.Static, opts ...Option) *Machine {
	m := &Machine{
		cores: map[arch.MPIDR]*Core{},
		fail:  map[failKey]error{},
	}
	for _, mpidr := range topo.Cores() {
		m.cores[mpidr] = &Core{m: m, mpidr: mpidr, pfr0: pfr0WithEL2, spsel: arch.ModeSPEL0}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach sets what released cores run. It must be called before any core
// is powered on.
func (m *Machine) Attach(w WarmBooter) {
	m.warm = w
}

// Core returns the core with the given MPIDR, or nil.
func (m *Machine) Core(mpidr arch.MPIDR) *Core {
	return m.cores[mpidr.Mask(0)]
}

// CPU returns the core with the given MPIDR as an arch.CPU, or nil.
func (m *Machine) CPU(mpidr arch.MPIDR) arch.CPU {
	if c := m.Core(mpidr); c != nil {
		return c
	}
	return nil
}

// Run executes fn on the core, on its own goroutine. A halt inside fn is
// returned by Wait.
func (m *Machine) Run(mpidr arch.MPIDR, fn func(c *Core)) {
	c := m.mustCore(mpidr)
	m.g.Go(func() error {
		return halt.Catch(func() { fn(c) })
	})
}

// Wait blocks until every core goroutine has stopped or returned, and
// reports the first halt.
func (m *Machine) Wait() error {
	return m.g.Wait()
}

// Wake signals a wake up event to a core suspended in a power down state.
func (m *Machine) Wake(mpidr arch.MPIDR) {
	m.record(Call{Op: OpWake, MPIDR: mpidr})
	m.release(mpidr)
}

// FailNext makes the next platform hook op at level fail with err.
func (m *Machine) FailNext(op string, level uint, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[failKey{op, level}] = err
}

// Hold keeps cores that are powered on in reset until ReleaseHeld.
func (m *Machine) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = true
}

// ReleaseHeld starts every core kept in reset by Hold and stops holding.
func (m *Machine) ReleaseHeld() {
	m.mu.Lock()
	held := m.held
	m.held, m.hold = nil, false
	m.mu.Unlock()
	for _, mpidr := range held {
		m.release(mpidr)
	}
}

// Calls returns the recorded platform events in order.
func (m *Machine) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsOf returns the recorded events with the given op.
func (m *Machine) CallsOf(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Entries returns the exception returns performed by released cores.
func (m *Machine) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *Machine) mustCore(mpidr arch.MPIDR) *Core {
	c := m.Core(mpidr)
	if c == nil {
		panic(fmt.Sprintf("sim: no core %v", mpidr))
	}
	return c
}

func (m *Machine) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	k := failKey{c.Op, c.Level}
	if err, ok := m.fail[k]; ok {
		delete(m.fail, k)
		return err
	}
	return nil
}

// release starts a core at the warm boot entry point and performs its
// exception return once the monitor is done with it.
func (m *Machine) release(mpidr arch.MPIDR) {
	c := m.mustCore(mpidr)
	if m.warm == nil {
		panic("sim: no warm boot code attached")
	}
	m.g.Go(func() error {
		return halt.Catch(func() {
			m.warm.WarmBoot(c)
			e := c.ERET()
			m.mu.Lock()
			m.entries = append(m.entries, e)
			m.mu.Unlock()
		})
	})
}

// AffinityOn implements psci.Platform.
func (m *Machine) AffinityOn(target arch.MPIDR, entrypoint uint64, level uint, state psci.State) error {
	if err := m.record(Call{Op: OpOn, MPIDR: target, Level: level, State: state}); err != nil {
		return err
	}
	if level != 0 {
		return nil
	}
	m.mu.Lock()
	if m.hold {
		m.held = append(m.held, target)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	m.release(target)
	return nil
}

// AffinityOff implements psci.Platform.
func (m *Machine) AffinityOff(mpidr arch.MPIDR, level uint, state psci.State) error {
	return m.record(Call{Op: OpOff, MPIDR: mpidr, Level: level, State: state})
}

// AffinitySuspend implements psci.Platform.
func (m *Machine) AffinitySuspend(mpidr arch.MPIDR, entrypoint uint64, level uint, state psci.State) error {
	return m.record(Call{Op: OpSuspend, MPIDR: mpidr, Level: level, State: state})
}

// AffinityOnFinish implements psci.Platform.
func (m *Machine) AffinityOnFinish(mpidr arch.MPIDR, level uint, state psci.State) error {
	return m.record(Call{Op: OpOnFinish, MPIDR: mpidr, Level: level, State: state})
}

// AffinitySuspendFinish implements psci.Platform.
func (m *Machine) AffinitySuspendFinish(mpidr arch.MPIDR, level uint, state psci.State) error {
	return m.record(Call{Op: OpSuspendFinish, MPIDR: mpidr, Level: level, State: state})
}

// SystemOff implements psci.SystemPower. It stops the calling goroutine.
func (m *Machine) SystemOff() {
	m.record(Call{Op: OpSystemOff})
	runtime.Goexit()
}

// SystemReset implements psci.SystemPower. It stops the calling goroutine.
func (m *Machine) SystemReset() {
	m.record(Call{Op: OpSystemReset})
	runtime.Goexit()
}
