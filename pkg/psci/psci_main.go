// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
)

// Version returns the packed PSCI version.
func Version() uint32 {
	return VersionMajor<<16 | VersionMinor
}

// AffinityInfo returns the state of the instance at lowestLevel containing
// target, as a State value, or InvalidParams. A suspended instance is
// reported as ON since it is available to the caller.
//
// Levels above 0 report their state as is, ON_PENDING included.
func (s *Service) AffinityInfo(target arch.MPIDR, lowestLevel uint) int32 {
	if lowestLevel > s.tree.maxLevel || !target.Valid() {
		return int32(InvalidParams)
	}
	n := s.tree.Node(target, lowestLevel)
	if n == nil || !n.Present {
		return int32(InvalidParams)
	}
	state := n.State()
	if state == StateSuspend {
		state = StateOn
	}
	return int32(state)
}

// Migrate is not supported: there is no trusted OS to migrate.
func (s *Service) Migrate(target arch.MPIDR) Code {
	return NotSupported
}

// MigrateInfoType reports that no trusted OS needs migration.
func (s *Service) MigrateInfoType() uint32 {
	return TOSNotPresentMultiprocessor
}

// MigrateInfoUpCPU is meaningless given MigrateInfoType and returns
// Success.
func (s *Service) MigrateInfoUpCPU() Code {
	return Success
}

// SystemOff turns the system off through the platform. It does not
// return; a platform without system power control halts the monitor.
func (s *Service) SystemOff() {
	sp, ok := s.plat.(SystemPower)
	if !ok {
		halt.Halt("SYSTEM_OFF is not implemented by the platform")
	}
	sp.SystemOff()
	halt.Unreachable("SYSTEM_OFF returned")
}

// SystemReset resets the system through the platform. It does not return.
func (s *Service) SystemReset() {
	sp, ok := s.plat.(SystemPower)
	if !ok {
		halt.Halt("SYSTEM_RESET is not implemented by the platform")
	}
	sp.SystemReset()
	halt.Unreachable("SYSTEM_RESET returned")
}
