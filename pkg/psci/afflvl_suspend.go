// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
)

// CPUSuspend prepares the calling core, and the aggregates up to the level
// named in powerState that have no other running core, for a power down
// from which the core resumes at entrypoint with contextID in x0.
//
// On Success the caller must power the core down. Standby requests are not
// supported.
func (s *Service) CPUSuspend(cpu arch.CPU, powerState PowerState, entrypoint, contextID uint64) Code {
	if powerState.Type() == PowerStateStandby {
		return InvalidParams
	}
	target := powerState.AffinityLevel()
	if target > s.tree.maxLevel {
		return InvalidParams
	}
	spsr, scr, ok := s.nsEntry(cpu, entrypoint)
	if !ok {
		return InvalidParams
	}

	mpidr := cpu.MPIDR()
	path := s.tree.path(mpidr)
	s.acquire(path)
	defer s.release(path)

	core := path[0]
	halt.Assert(core.state == StateOn, "CPU_SUSPEND from core %v in state %v", mpidr, core.state)

	if s.spd != nil {
		s.spd.CPUSuspend(mpidr, powerState)
	}

	s.cm.SaveEL1SysRegs(cpu, cm.NonSecure)
	s.cm.SaveEL3SysRegs(cpu, cm.NonSecure)
	s.programEntry(mpidr, entrypoint, contextID, spsr, scr)

	warm := s.topo.WarmEntry()
	if err := s.plat.AffinitySuspend(mpidr, warm, 0, core.state); err != nil {
		halt.Halt("suspend of core %v: %v", mpidr, err)
	}
	core.state = StateSuspend

	for _, n := range path[1 : target+1] {
		if !n.childrenIn(StateSuspend, StateOff) {
			break
		}
		if err := s.plat.AffinitySuspend(mpidr, warm, n.Level, n.state); err != nil {
			halt.Halt("suspend of %v: %v", n, err)
		}
		n.state = StateSuspend
	}
	return Success
}
