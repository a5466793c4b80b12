// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cm

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
)

// StackProvider returns the initial exception stack of a core.
type StackProvider interface {
	ExceptionStack(mpidr arch.MPIDR) uint64
}

// Manager moves register state between a core and its registered contexts.
type Manager struct {
	*Registry
	stacks StackProvider
}

// NewManager returns a Manager over reg taking exception stacks from stacks.
func NewManager(reg *Registry, stacks StackProvider) *Manager {
	return &Manager{Registry: reg, stacks: stacks}
}

// mustGet is Get for callers that cannot proceed without a context.
func (m *Manager) mustGet(mpidr arch.MPIDR, state SecurityState) *arch.Context {
	ctx := m.Get(mpidr, state)
	if ctx == nil {
		halt.Halt("no %v context for core %v", state, mpidr)
	}
	return ctx
}

// SaveEL3SysRegs saves the monitor's register bank of the calling core into
// the context of state. Call it before switching away from state.
func (m *Manager) SaveEL3SysRegs(cpu arch.CPU, state SecurityState) {
	m.mustGet(cpu.MPIDR(), state).EL3Sys = cpu.ReadEL3SysRegs()
}

// RestoreEL3SysRegs is the reverse of SaveEL3SysRegs. Call it after
// switching back to state.
func (m *Manager) RestoreEL3SysRegs(cpu arch.CPU, state SecurityState) {
	cpu.WriteEL3SysRegs(m.mustGet(cpu.MPIDR(), state).EL3Sys)
}

// SaveEL1SysRegs saves the delegated level register bank.
func (m *Manager) SaveEL1SysRegs(cpu arch.CPU, state SecurityState) {
	m.mustGet(cpu.MPIDR(), state).EL1 = cpu.ReadEL1SysRegs()
}

// RestoreEL1SysRegs is the reverse of SaveEL1SysRegs.
func (m *Manager) RestoreEL1SysRegs(cpu arch.CPU, state SecurityState) {
	cpu.WriteEL1SysRegs(m.mustGet(cpu.MPIDR(), state).EL1)
}

// SetEL3EretContext populates the context of state on core mpidr so that
// the next ERET from it enters entrypoint with the given SPSR and SCR.
//
// mpidr is the calling core, or a core that is being brought up and has
// not started executing yet.
func (m *Manager) SetEL3EretContext(mpidr arch.MPIDR, state SecurityState, entrypoint uint64, spsr, scr uint32) {
	el3 := &m.mustGet(mpidr, state).EL3
	el3.SPSR = uint64(spsr)
	el3.ELR = entrypoint
	el3.SCR = uint64(scr)
}

// SetGPReg writes a general purpose register of a saved context, the way
// a return value or an entry argument is handed to a world.
func (m *Manager) SetGPReg(mpidr arch.MPIDR, state SecurityState, reg int, v uint64) {
	halt.Assert(reg >= 0 && reg < len(arch.GPRegs{}.X), "invalid register x%d", reg)
	m.mustGet(mpidr, state).GPRegs.X[reg] = v
}

// SetNextEretContext points SP_EL3 of the calling core at the context of
// state, so that the next exception return restores it and the next
// exception from that world saves into it.
//
// It must be called with SP_EL0 selected, otherwise the banked stack
// pointer in use would be overwritten.
func (m *Manager) SetNextEretContext(cpu arch.CPU, state SecurityState) {
	ctx := m.mustGet(cpu.MPIDR(), state)
	halt.Assert(cpu.SPSel() == arch.ModeSPEL0, "SetNextEretContext on core %v with SP_EL%d selected", cpu.MPIDR(), 3*cpu.SPSel())
	cpu.SetSPEL3(ctx)
}

// InitExceptionStack writes the initial exception stack of the core into
// the context of state. It has to run once per core and world before that
// world is entered; running it again is harmless.
func (m *Manager) InitExceptionStack(mpidr arch.MPIDR, state SecurityState) {
	m.mustGet(mpidr, state).EL3.ExceptionSP = m.stacks.ExceptionStack(mpidr)
}
