// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
)

func TestCPUSuspendStandby(t *testing.T) {
	s := boot(t, topology.Uniform(1, 2), nil)
	for _, ps := range []psci.PowerState{
		psci.NewPowerState(psci.PowerStateStandby, 0, 0),
		psci.NewPowerState(psci.PowerStatePowerDown, 2, 0),
	} {
		rc, returned := s.smc(t, primary, psci.FnCPUSuspend64, uint64(ps), nsEntry, 0)
		require.True(t, returned, "power state %#x", ps)
		assert.Equal(t, psci.InvalidParams.Register(), rc)
	}
	assert.Empty(t, s.m.CallsOf(sim.OpSuspend))
	assert.Equal(t, psci.StateOn, s.state(primary, 0))
}

func TestCPUSuspendClusterAndResume(t *testing.T) {
	s := boot(t, topology.Uniform(2, 2), nil)
	spd := &payload{}
	s.svc.RegisterSecurePayload(spd)
	s.on(t, primary, 0x100)

	core := s.core(0x100)
	banked := arch.EL1SysRegs{VBAREL1: 0x80000800, SCTLREL1: 0x30d00800}
	core.WriteEL1SysRegs(banked)

	ps := psci.NewPowerState(psci.PowerStatePowerDown, 1, 0x22)
	_, returned := s.smc(t, 0x100, psci.FnCPUSuspend64, uint64(ps), 0x80001000, 0xabc)
	require.False(t, returned, "CPU_SUSPEND returned after power down")

	assert.Equal(t, psci.StateSuspend, s.state(0x100, 0))
	assert.Equal(t, psci.StateSuspend, s.state(0x100, 1))
	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(0x100, 0))
	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(0x100, 1))
	assert.Equal(t, []sim.Call{
		{Op: sim.OpSuspend, MPIDR: 0x100, Level: 0, State: psci.StateOn},
		{Op: sim.OpSuspend, MPIDR: 0x100, Level: 1, State: psci.StateOn},
	}, s.m.CallsOf(sim.OpSuspend))
	assert.Equal(t, arch.EL1SysRegs{}, core.ReadEL1SysRegs())

	s.m.Wake(0x100)
	require.NoError(t, s.m.Wait())

	assert.Equal(t, []sim.Call{
		{Op: sim.OpSuspendFinish, MPIDR: 0x100, Level: 1, State: psci.StateSuspend},
		{Op: sim.OpSuspendFinish, MPIDR: 0x100, Level: 0, State: psci.StateSuspend},
	}, s.m.CallsOf(sim.OpSuspendFinish))
	assert.Equal(t, psci.StateOn, s.state(0x100, 0))
	assert.Equal(t, psci.StateOn, s.state(0x100, 1))
	assert.Equal(t, banked, core.ReadEL1SysRegs())

	entries := s.m.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, arch.MPIDR(0x100), last.MPIDR)
	assert.Equal(t, uint64(0x80001000), last.PC)
	assert.Equal(t, uint64(0xabc), last.X0)

	assert.Equal(t, []string{"on_finish 0x100", "suspend 0x100", "suspend_finish 0x100"}, spd.Events())
}

func TestCPUSuspendKeepsBusyCluster(t *testing.T) {
	s := boot(t, topology.Uniform(1, 2), nil)
	s.on(t, primary, 0x1)

	ps := psci.NewPowerState(psci.PowerStatePowerDown, 1, 0)
	_, returned := s.smc(t, 0x1, psci.FnCPUSuspend32, uint64(ps), nsEntry, 0)
	require.False(t, returned)

	assert.Equal(t, psci.StateSuspend, s.state(0x1, 0))
	assert.Equal(t, psci.StateOn, s.state(0x1, 1))
	assert.Len(t, s.m.CallsOf(sim.OpSuspend), 1)

	s.m.Wake(0x1)
	require.NoError(t, s.m.Wait())
	assert.Equal(t, []sim.Call{
		{Op: sim.OpSuspendFinish, MPIDR: 0x1, Level: 0, State: psci.StateSuspend},
	}, s.m.CallsOf(sim.OpSuspendFinish))
}

func TestCPUSuspendMisalignedEntry(t *testing.T) {
	s := boot(t, topology.Uniform(1, 1), nil)
	rc := s.svc.CPUSuspend(s.core(primary), powerDownCore, nsEntry+1, 0)
	assert.Equal(t, psci.InvalidParams, rc)
	assert.Equal(t, psci.StateOn, s.state(primary, 0))
}
