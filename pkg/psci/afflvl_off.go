// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/log"
)

// CPUOff turns off the calling core and every aggregate left without a
// running core. On Success the caller must power the core down; the only
// other outcome is Denied, in which case nothing changed.
func (s *Service) CPUOff(cpu arch.CPU) Code {
	mpidr := cpu.MPIDR()
	path := s.tree.path(mpidr)
	s.acquire(path)
	defer s.release(path)

	core := path[0]
	halt.Assert(core.state == StateOn, "CPU_OFF from core %v in state %v", mpidr, core.state)

	if s.spd != nil {
		if err := s.spd.CPUOff(mpidr); err != nil {
			log.Warnf("psci: secure payload denied CPU_OFF of %v: %v", mpidr, err)
			return Denied
		}
	}
	if err := s.plat.AffinityOff(mpidr, 0, core.state); err != nil {
		log.Warnf("psci: platform denied CPU_OFF of %v: %v", mpidr, err)
		return Denied
	}
	core.state = StateOff

	for _, n := range path[1:] {
		if !n.childrenIn(StateOff) {
			break
		}
		if err := s.plat.AffinityOff(mpidr, n.Level, n.state); err != nil {
			log.Warnf("psci: leaving %v powered: %v", n, err)
			break
		}
		n.state = StateOff
	}
	return Success
}
