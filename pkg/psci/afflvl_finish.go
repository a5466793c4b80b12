// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
)

// WarmBoot is run by a core entering the monitor at the warm boot entry
// point, after CPU_ON or when waking from a CPU_SUSPEND power down. It
// finishes the transition and leaves SP_EL3 pointing at the non-secure
// context, ready for the exception return.
func (s *Service) WarmBoot(cpu arch.CPU) {
	mpidr := cpu.MPIDR()
	path := s.tree.path(mpidr)
	s.acquire(path)
	defer s.release(path)

	switch state := path[0].state; state {
	case StateOnPending:
		s.onFinish(cpu, path)
	case StateSuspend:
		s.suspendFinish(cpu, path)
	default:
		halt.Halt("warm boot of core %v in state %v", mpidr, state)
	}
}

func (s *Service) onFinish(cpu arch.CPU, path []*Node) {
	mpidr := cpu.MPIDR()
	for l := len(path) - 1; l >= 0; l-- {
		n := path[l]
		if n.state == StateOn {
			continue
		}
		if err := s.plat.AffinityOnFinish(mpidr, n.Level, n.state); err != nil {
			halt.Halt("power on finish of %v: %v", n, err)
		}
		n.state = StateOn
	}

	s.cm.InitExceptionStack(mpidr, cm.NonSecure)
	if s.spd != nil {
		s.spd.CPUOnFinish(mpidr)
	}
	s.cm.SetNextEretContext(cpu, cm.NonSecure)
}

func (s *Service) suspendFinish(cpu arch.CPU, path []*Node) {
	mpidr := cpu.MPIDR()
	for l := len(path) - 1; l >= 0; l-- {
		n := path[l]
		if n.state != StateSuspend {
			continue
		}
		if err := s.plat.AffinitySuspendFinish(mpidr, n.Level, n.state); err != nil {
			halt.Halt("suspend finish of %v: %v", n, err)
		}
		n.state = StateOn
	}

	s.cm.RestoreEL3SysRegs(cpu, cm.NonSecure)
	s.cm.RestoreEL1SysRegs(cpu, cm.NonSecure)
	if s.spd != nil {
		s.spd.CPUSuspendFinish(mpidr)
	}
	s.cm.SetNextEretContext(cpu, cm.NonSecure)
}
