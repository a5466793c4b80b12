// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
)

// CPUOn powers on target so that it enters the non-secure world at
// entrypoint with contextID in x0. caller is the core issuing the request.
func (s *Service) CPUOn(caller arch.CPU, target arch.MPIDR, entrypoint, contextID uint64) Code {
	if !s.validTarget(target) {
		return InvalidParams
	}
	spsr, scr, ok := s.nsEntry(caller, entrypoint)
	if !ok {
		return InvalidParams
	}

	path := s.tree.path(target)
	s.acquire(path)
	defer s.release(path)

	switch path[0].state {
	case StateOn, StateSuspend:
		return AlreadyOn
	case StateOnPending:
		return OnPending
	}

	// Aggregates first, so the cluster is up before its core is
	// released. OFF and SUSPEND aggregates are powered down; ON and
	// ON_PENDING ones were already brought up by another core.
	warm := s.topo.WarmEntry()
	for l := len(path) - 1; l >= 1; l-- {
		n := path[l]
		if n.state != StateOff && n.state != StateSuspend {
			continue
		}
		if err := s.plat.AffinityOn(target, warm, n.Level, n.state); err != nil {
			halt.Halt("bring-up of %v for core %v: %v", n, target, err)
		}
		n.state = StateOnPending
	}

	// target has not started executing, so its context is ours to write.
	s.programEntry(target, entrypoint, contextID, spsr, scr)
	path[0].state = StateOnPending
	if err := s.plat.AffinityOn(target, warm, 0, StateOff); err != nil {
		halt.Halt("power on of core %v: %v", target, err)
	}
	return Success
}
