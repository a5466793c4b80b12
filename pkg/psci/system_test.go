// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
)

const (
	primary   arch.MPIDR = 0x0
	nsEntry   uint64     = 0x88000000
	aarch64NS            = arch.SCRRW | arch.SCRNonSecure | arch.SCRRES1
)

var powerDownCore = psci.NewPowerState(psci.PowerStatePowerDown, 0, 0)

type system struct {
	topo *topology.Static
	m    *sim.Machine
	mgr  *cm.Manager
	svc  *psci.Service
}

// boot brings up a system the way cold boot leaves it: the primary core ON
// in AArch64 non-secure EL2, every other core OFF.
func boot(t *testing.T, d topology.Description, machineOpts []sim.Option, opts ...psci.Option) *system {
	t.Helper()
	topo, err := topology.New(d)
	require.NoError(t, err)

	s := &system{topo: topo, m: sim.New(topo, machineOpts...)}
	s.mgr = cm.NewManager(cm.NewRegistry(topo), topo)
	s.svc = psci.New(topo, s.m, s.mgr, opts...)
	s.m.Attach(s.svc)
	s.svc.Start(primary)
	s.mgr.SetEL3EretContext(primary, cm.NonSecure, nsEntry, arch.SPSR64(arch.ModeEL2, arch.ModeSPELx, arch.DAIFAll), aarch64NS)
	return s
}

func (s *system) core(mpidr arch.MPIDR) *sim.Core {
	return s.m.Core(mpidr)
}

// on turns target on from caller and waits until it reached the
// non-secure world.
func (s *system) on(t *testing.T, caller, target arch.MPIDR) {
	t.Helper()
	require.Equal(t, psci.Success, s.svc.CPUOn(s.core(caller), target, nsEntry, 0))
	require.NoError(t, s.m.Wait())
	require.Equal(t, int32(psci.StateOn), s.svc.AffinityInfo(target, 0))
}

// smc issues a call from mpidr on its own goroutine and returns the value
// the call returned, if it did.
func (s *system) smc(t *testing.T, mpidr arch.MPIDR, fid uint32, args ...uint64) (rc uint64, returned bool) {
	t.Helper()
	var x [4]uint64
	copy(x[:], args)
	s.m.Run(mpidr, func(c *sim.Core) {
		rc = s.svc.HandleSMC(c, fid, x[0], x[1], x[2], x[3])
		returned = true
	})
	require.NoError(t, s.m.Wait())
	return rc, returned
}

func (s *system) nsContext(mpidr arch.MPIDR) *arch.Context {
	return s.mgr.Get(mpidr, cm.NonSecure)
}

func (s *system) state(mpidr arch.MPIDR, level uint) psci.State {
	return s.svc.Tree().Node(mpidr, level).State()
}

var (
	errDenied          = errors.New("secure payload busy")
	errPowerController = errors.New("power controller timeout")
)

// payload records the power events a secure payload dispatcher sees.
type payload struct {
	mu     sync.Mutex
	events []string
	deny   bool
}

func (p *payload) add(ev string, mpidr arch.MPIDR) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev+" "+mpidr.String())
}

func (p *payload) CPUOff(mpidr arch.MPIDR) error {
	p.add("off", mpidr)
	if p.deny {
		return errDenied
	}
	return nil
}

func (p *payload) CPUSuspend(mpidr arch.MPIDR, _ psci.PowerState) {
	p.add("suspend", mpidr)
}

func (p *payload) CPUOnFinish(mpidr arch.MPIDR) {
	p.add("on_finish", mpidr)
}

func (p *payload) CPUSuspendFinish(mpidr arch.MPIDR) {
	p.add("suspend_finish", mpidr)
}

func (p *payload) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
