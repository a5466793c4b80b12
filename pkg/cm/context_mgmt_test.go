// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/topology"
)

type fakeCPU struct {
	mpidr arch.MPIDR
	el1   arch.EL1SysRegs
	el3   arch.EL3SysRegs
	spsel uint64
	spEL3 *arch.Context
}

func (c *fakeCPU) MPIDR() arch.MPIDR { return c.mpidr }
func (c *fakeCPU) ReadEL1SysRegs() arch.EL1SysRegs { return c.el1 }
func (c *fakeCPU) WriteEL1SysRegs(r arch.EL1SysRegs) { c.el1 = r }
func (c *fakeCPU) ReadEL3SysRegs() arch.EL3SysRegs { return c.el3 }
func (c *fakeCPU) WriteEL3SysRegs(r arch.EL3SysRegs) { c.el3 = r }
func (c *fakeCPU) SPSel() uint64 { return c.spsel }
func (c *fakeCPU) SetSPEL3(ctx *arch.Context) { c.spEL3 = ctx }
func (c *fakeCPU) ReadIDAA64PFR0() uint64 { return 0 }
func (c *fakeCPU) PowerDown() {}

func newManager(t *testing.T) (*topology.Static, *Manager) {
	topo, err := topology.New(topology.Uniform(2, 4))
	require.NoError(t, err)
	return topo, NewManager(NewRegistry(topo), topo)
}

func TestRegistryRoundTrip(t *testing.T) {
	_, m := newManager(t)

	core := arch.MPIDR(0x102)
	require.Nil(t, m.Get(core, Secure))
	require.Nil(t, m.Get(core, NonSecure))

	h := &arch.Context{}
	m.Set(core, Secure, h)
	assert.Same(t, h, m.Get(core, Secure))
	assert.Nil(t, m.Get(core, NonSecure))
	assert.Nil(t, m.Get(0x101, Secure))

	ns := &arch.Context{}
	m.Set(core, NonSecure, ns)
	assert.Same(t, h, m.Get(core, Secure))
	assert.Same(t, ns, m.Get(core, NonSecure))

	// Flag bits do not change the core a slot belongs to.
	assert.Same(t, h, m.Get(core|arch.MPIDRRES1, Secure))
}

func TestRegistryContractViolations(t *testing.T) {
	_, m := newManager(t)

	for name, fn := range map[string]func(){
		"bad state":     func() { m.Get(0x0, SecurityState(2)) },
		"unknown core":  func() { m.Set(0x4, Secure, &arch.Context{}) },
		"missing ctx":   func() { m.SaveEL1SysRegs(&fakeCPU{mpidr: 0x0}, NonSecure) },
		"missing stack": func() { m.InitExceptionStack(0x1, Secure) },
		"missing eret":  func() { m.SetEL3EretContext(0x1, NonSecure, 0, 0, 0) },
		"bad gp":        func() { m.Set(0x0, Secure, &arch.Context{}); m.SetGPReg(0x0, Secure, 31, 0) },
	} {
		err := halt.Catch(fn)
		assert.Error(t, err, name)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	_, m := newManager(t)
	cpu := &fakeCPU{
		mpidr: 0x1,
		el1:   arch.EL1SysRegs{SCTLREL1: 0x30d00800, VBAREL1: 0x80000800, TTBR0EL1: 0x1000, SPEL1: 0x9000},
		el3:   arch.EL3SysRegs{SCTLR: 0x30c50838, VBAR: 0x04003000, CNTFRQ: 100000000},
	}
	m.Set(cpu.mpidr, NonSecure, &arch.Context{})

	el1, el3 := cpu.el1, cpu.el3
	m.SaveEL1SysRegs(cpu, NonSecure)
	m.RestoreEL1SysRegs(cpu, NonSecure)
	m.SaveEL3SysRegs(cpu, NonSecure)
	m.RestoreEL3SysRegs(cpu, NonSecure)
	if diff := cmp.Diff(el1, cpu.el1); diff != "" {
		t.Errorf("EL1 bank changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(el3, cpu.el3); diff != "" {
		t.Errorf("EL3 bank changed (-want +got):\n%s", diff)
	}

	// A clobbered bank comes back from the context.
	cpu.el1 = arch.EL1SysRegs{}
	m.RestoreEL1SysRegs(cpu, NonSecure)
	assert.Equal(t, el1, cpu.el1)
}

func TestSaveSelectsWorld(t *testing.T) {
	_, m := newManager(t)
	cpu := &fakeCPU{mpidr: 0x0}
	sec, ns := &arch.Context{}, &arch.Context{}
	m.Set(cpu.mpidr, Secure, sec)
	m.Set(cpu.mpidr, NonSecure, ns)

	cpu.el1.VBAREL1 = 0xaaaa
	m.SaveEL1SysRegs(cpu, Secure)
	cpu.el1.VBAREL1 = 0xbbbb
	m.SaveEL1SysRegs(cpu, NonSecure)

	assert.Equal(t, uint64(0xaaaa), sec.EL1.VBAREL1)
	assert.Equal(t, uint64(0xbbbb), ns.EL1.VBAREL1)
}

func TestEretProgramming(t *testing.T) {
	topo, m := newManager(t)
	cpu := &fakeCPU{mpidr: 0x100}
	ctx := &arch.Context{}
	m.Set(cpu.mpidr, NonSecure, ctx)

	m.SetEL3EretContext(cpu.mpidr, NonSecure, 0x88000000, 0x3c9, 0x531)
	m.SetGPReg(cpu.mpidr, NonSecure, 0, 0x1234)
	m.InitExceptionStack(cpu.mpidr, NonSecure)
	m.InitExceptionStack(cpu.mpidr, NonSecure)

	assert.Equal(t, arch.EL3State{
		SCR:         0x531,
		ELR:         0x88000000,
		SPSR:        0x3c9,
		ExceptionSP: topo.ExceptionStack(cpu.mpidr),
	}, ctx.EL3)
	assert.Equal(t, uint64(0x1234), ctx.GPRegs.X[0])

	m.SetNextEretContext(cpu, NonSecure)
	assert.Same(t, ctx, cpu.spEL3)
}

func TestSetNextEretContextNeedsSPEL0(t *testing.T) {
	_, m := newManager(t)
	cpu := &fakeCPU{mpidr: 0x0, spsel: arch.ModeSPELx}
	m.Set(cpu.mpidr, Secure, &arch.Context{})

	err := halt.Catch(func() { m.SetNextEretContext(cpu, Secure) })
	require.Error(t, err)
	assert.Nil(t, cpu.spEL3)
}
