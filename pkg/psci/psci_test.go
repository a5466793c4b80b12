// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
)

func TestPowerState(t *testing.T) {
	ps := psci.NewPowerState(psci.PowerStatePowerDown, 1, 0xbeef)
	assert.Equal(t, psci.PowerState(0x0101beef), ps)
	assert.Equal(t, uint32(psci.PowerStatePowerDown), ps.Type())
	assert.Equal(t, uint(1), ps.AffinityLevel())
	assert.Equal(t, uint16(0xbeef), ps.ID())

	assert.Equal(t, uint32(psci.PowerStateStandby), psci.PowerState(0x0300ffff).Type())
	assert.Equal(t, uint(3), psci.PowerState(0x0300ffff).AffinityLevel())
}

func TestCodeRegister(t *testing.T) {
	assert.Equal(t, uint64(0), psci.Success.Register())
	assert.Equal(t, uint64(0xfffffffffffffffe), psci.InvalidParams.Register())
	assert.Equal(t, "ALREADY_ON", psci.AlreadyOn.String())
	assert.Equal(t, "Code(-42)", psci.Code(-42).String())
}

func TestAffinityInfo(t *testing.T) {
	s := boot(t, topology.Uniform(2, 1), nil)

	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(primary, 0))
	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(primary, 1))
	assert.Equal(t, int32(psci.StateOff), s.svc.AffinityInfo(0x100, 0))
	assert.Equal(t, int32(psci.StateOff), s.svc.AffinityInfo(0x100, 1))

	assert.Equal(t, int32(psci.InvalidParams), s.svc.AffinityInfo(primary, 2))
	assert.Equal(t, int32(psci.InvalidParams), s.svc.AffinityInfo(0x1, 0))
	assert.Equal(t, int32(psci.InvalidParams), s.svc.AffinityInfo(1<<40, 0))

	s.m.Hold()
	require.Equal(t, psci.Success, s.svc.CPUOn(s.core(primary), 0x100, nsEntry, 0))
	assert.Equal(t, int32(psci.StateOnPending), s.svc.AffinityInfo(0x100, 0))
	assert.Equal(t, int32(psci.StateOnPending), s.svc.AffinityInfo(0x100, 1))

	s.m.ReleaseHeld()
	require.NoError(t, s.m.Wait())
	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(0x100, 0))
	assert.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(0x100, 1))
}

func TestHandleSMCSimpleCalls(t *testing.T) {
	s := boot(t, topology.Uniform(1, 1), nil)

	for _, tt := range []struct {
		name string
		fid  uint32
		args []uint64
		want uint64
	}{
		{"version", psci.FnVersion, nil, 0x2},
		{"migrate", psci.FnMigrate64, []uint64{0x1}, psci.NotSupported.Register()},
		{"migrate32", psci.FnMigrate32, []uint64{0x1}, psci.NotSupported.Register()},
		{"migrate info type", psci.FnMigrateInfoType, nil, psci.TOSNotPresentMultiprocessor},
		{"migrate info up cpu", psci.FnMigrateInfoUpCPU64, nil, 0},
		{"affinity info", psci.FnAffinityInfo64, []uint64{0x0, 0}, uint64(psci.StateOn)},
		{"affinity info smc64 keeps upper bits", psci.FnAffinityInfo64, []uint64{1 << 40, 0}, psci.InvalidParams.Register()},
		{"affinity info smc32 drops upper bits", psci.FnAffinityInfo32, []uint64{1 << 40, 0}, uint64(psci.StateOn)},
		{"affinity info smc32 error is sign extended", psci.FnAffinityInfo32, []uint64{0x0, 3}, 0xfffffffffffffffe},
		{"unknown", 0x84000020, nil, psci.SMCUnknown},
		{"unknown smc64", 0xc4000000, nil, psci.SMCUnknown},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s.nsContext(primary).GPRegs.X[0] = 0xdead
			rc, returned := s.smc(t, primary, tt.fid, tt.args...)
			require.True(t, returned)
			assert.Equal(t, tt.want, rc)
			assert.Equal(t, tt.want, s.nsContext(primary).GPRegs.X[0])
		})
	}
}

func TestHandleSMC32CPUOn(t *testing.T) {
	s := boot(t, topology.Uniform(1, 2), nil)
	rc, returned := s.smc(t, primary, psci.FnCPUOn32, 0xffffffff_00000001, 0xffffffff_80000000, 0x1_00000005)
	require.True(t, returned)
	assert.Equal(t, uint64(0), rc)
	require.NoError(t, s.m.Wait())

	entries := s.m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, arch.MPIDR(0x1), entries[0].MPIDR)
	assert.Equal(t, uint64(0x80000000), entries[0].PC)
	assert.Equal(t, uint64(5), entries[0].X0)
}

func TestHandleSMCSystemPower(t *testing.T) {
	for _, tt := range []struct {
		fid uint32
		op  string
	}{
		{psci.FnSystemOff, sim.OpSystemOff},
		{psci.FnSystemReset, sim.OpSystemReset},
	} {
		s := boot(t, topology.Uniform(1, 2), nil)
		_, returned := s.smc(t, primary, tt.fid)
		assert.False(t, returned, "%s returned", tt.op)
		assert.Len(t, s.m.CallsOf(tt.op), 1)
	}
}

// noSystemPower hides the system power control of the machine.
type noSystemPower struct {
	psci.Platform
}

func TestSystemOffWithoutPlatformSupportHalts(t *testing.T) {
	topo, err := topology.New(topology.Uniform(1, 1))
	require.NoError(t, err)
	m := sim.New(topo)
	svc := psci.New(topo, noSystemPower{m}, cm.NewManager(cm.NewRegistry(topo), topo))
	m.Attach(svc)
	svc.Start(primary)

	for name, fn := range map[string]func(){
		"off":   svc.SystemOff,
		"reset": svc.SystemReset,
	} {
		err := halt.Catch(fn)
		var herr *halt.Error
		require.ErrorAs(t, err, &herr, name)
		assert.Contains(t, herr.Reason, "not implemented")
	}
}

func TestFunctions(t *testing.T) {
	f, ok := psci.FunctionByName("cpu_on")
	require.True(t, ok)
	assert.Equal(t, psci.FnCPUOn64, f.ID)
	assert.Equal(t, 3, f.Args)

	_, ok = psci.FunctionByName("cpu_freeze")
	assert.False(t, ok)

	fns := psci.Functions()
	require.Len(t, fns, 10)
	for i := 1; i < len(fns); i++ {
		assert.Less(t, fns[i-1].Name, fns[i].Name)
	}
}

// lockChecker verifies that locks are taken from level 0 upwards and
// released in the opposite order. It relies on the operations it watches
// running one after the other.
type lockChecker struct {
	mu       sync.Mutex
	held     []*psci.Node
	acquires int
	errs     []string
}

func (c *lockChecker) observe(n *psci.Node, acquired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acquired {
		c.acquires++
		if len(c.held) > 0 && n.Level <= c.held[len(c.held)-1].Level {
			c.errs = append(c.errs, "acquired "+n.String()+" while holding "+c.held[len(c.held)-1].String())
		}
		c.held = append(c.held, n)
		return
	}
	if len(c.held) == 0 || c.held[len(c.held)-1] != n {
		c.errs = append(c.errs, "released "+n.String()+" out of order")
		return
	}
	c.held = c.held[:len(c.held)-1]
}

func TestLockOrder(t *testing.T) {
	lc := &lockChecker{}
	s := boot(t, topology.Uniform(2, 2), nil, psci.WithLockObserver(lc.observe))

	s.on(t, primary, 0x101)
	s.on(t, 0x101, 0x100)

	_, returned := s.smc(t, 0x101, psci.FnCPUOff)
	require.False(t, returned)

	ps := psci.NewPowerState(psci.PowerStatePowerDown, 1, 0)
	_, returned = s.smc(t, 0x100, psci.FnCPUSuspend64, uint64(ps), nsEntry, 0)
	require.False(t, returned)
	s.m.Wake(0x100)
	require.NoError(t, s.m.Wait())

	lc.mu.Lock()
	defer lc.mu.Unlock()
	assert.Empty(t, lc.errs)
	assert.Empty(t, lc.held)
	// start, two CPU_ON with their warm boots, CPU_OFF, CPU_SUSPEND and
	// its warm boot, each over a two level path.
	assert.Equal(t, 2*8, lc.acquires)
}
