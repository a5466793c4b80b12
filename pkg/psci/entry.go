// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
)

// nsEntry computes the SPSR and SCR a non-secure entry at entrypoint
// requested by caller must return with. The execution state of the entry
// follows the caller's: a caller running AArch64 below the monitor gets an
// AArch64 entry. ok is false if entrypoint is not a valid address for
// that execution state.
func (s *Service) nsEntry(caller arch.CPU, entrypoint uint64) (spsr, scr uint32, ok bool) {
	callerCtx := s.cm.Get(caller.MPIDR(), cm.NonSecure)
	if callerCtx == nil {
		halt.Halt("no non-secure context for calling core %v", caller.MPIDR())
	}
	scr = uint32(callerCtx.EL3.SCR)
	el2 := arch.EL2Implemented(caller.ReadIDAA64PFR0())

	if scr&arch.SCRRW != 0 {
		if entrypoint&0x3 != 0 {
			return 0, 0, false
		}
		mode := uint32(arch.ModeEL1)
		if el2 {
			mode = arch.ModeEL2
		}
		spsr = arch.SPSR64(mode, arch.ModeSPELx, arch.DAIFAll)
	} else {
		mode := uint32(arch.Mode32SVC)
		if el2 {
			mode = arch.Mode32HYP
		}
		endian := uint32(arch.EndianLittle)
		if caller.ReadEL1SysRegs().SCTLREL1&arch.SCTLREE != 0 {
			endian = arch.EndianBig
		}
		spsr = arch.SPSR32(mode, uint32(entrypoint&1), endian, arch.AIFAll)
	}

	scr |= arch.SCRNonSecure | arch.SCRRES1
	if el2 {
		scr |= arch.SCRHCE
	}
	return spsr, scr, true
}

// programEntry writes the entry computed by nsEntry into the non-secure
// context of target, with contextID as its first argument.
func (s *Service) programEntry(target arch.MPIDR, entrypoint, contextID uint64, spsr, scr uint32) {
	s.cm.SetEL3EretContext(target, cm.NonSecure, entrypoint, spsr, scr)
	s.cm.SetGPReg(target, cm.NonSecure, 0, contextID)
}
