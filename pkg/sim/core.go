// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"runtime"
	"sync"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
)

const (
	pfr0EL1Only = 0x0011
	pfr0WithEL2 = 0x1111
)

// Core is one simulated core. Its registers are only meaningful to the
// goroutine currently running on it.
type Core struct {
	m     *Machine
	mpidr arch.MPIDR

	mu    sync.Mutex
	el1   arch.EL1SysRegs
	el3   arch.EL3SysRegs
	spsel uint64
	spEL3 *arch.Context
	pfr0  uint64
}

var _ arch.CPU = (*Core)(nil)

// MPIDR implements arch.CPU.
func (c *Core) MPIDR() arch.MPIDR {
	return c.mpidr
}

// ReadEL1SysRegs implements arch.CPU.
func (c *Core) ReadEL1SysRegs() arch.EL1SysRegs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.el1
}

// WriteEL1SysRegs implements arch.CPU.
func (c *Core) WriteEL1SysRegs(r arch.EL1SysRegs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.el1 = r
}

// ReadEL3SysRegs implements arch.CPU.
func (c *Core) ReadEL3SysRegs() arch.EL3SysRegs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.el3
}

// WriteEL3SysRegs implements arch.CPU.
func (c *Core) WriteEL3SysRegs(r arch.EL3SysRegs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.el3 = r
}

// SPSel implements arch.CPU.
func (c *Core) SPSel() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spsel
}

// SelectSP switches the stack pointer selection, as msr spsel does.
func (c *Core) SelectSP(sel uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spsel = sel
}

// SetSPEL3 implements arch.CPU.
func (c *Core) SetSPEL3(ctx *arch.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spEL3 = ctx
	c.spsel = arch.ModeSPEL0
}

// SPEL3 returns the context SP_EL3 points at.
func (c *Core) SPEL3() *arch.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spEL3
}

// ReadIDAA64PFR0 implements arch.CPU.
func (c *Core) ReadIDAA64PFR0() uint64 {
	return c.pfr0
}

// PowerDown implements arch.CPU. The register banks lose their contents
// and the calling goroutine stops; the core comes back, on a new
// goroutine, only through the power controller.
func (c *Core) PowerDown() {
	c.mu.Lock()
	c.el1 = arch.EL1SysRegs{}
	c.el3 = arch.EL3SysRegs{}
	c.spEL3 = nil
	c.spsel = arch.ModeSPEL0
	c.mu.Unlock()
	c.m.record(Call{Op: OpPowerDown, MPIDR: c.mpidr})
	runtime.Goexit()
}

// ERET performs the exception return described by the context SP_EL3
// points at.
func (c *Core) ERET() Entry {
	ctx := c.SPEL3()
	if ctx == nil {
		halt.Halt("eret on core %v without a context", c.mpidr)
	}
	return Entry{
		MPIDR: c.mpidr,
		PC:    ctx.EL3.ELR,
		SPSR:  ctx.EL3.SPSR,
		SCR:   ctx.EL3.SCR,
		X0:    ctx.GPRegs.X[0],
	}
}
