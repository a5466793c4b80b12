// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

// CPU is the set of privileged primitives of the core the monitor is
// currently executing on. Real targets implement it with system register
// accessors; the simulator implements it in memory.
type CPU interface {
	// MPIDR reads MPIDR_EL1.
	MPIDR() MPIDR

	// ReadEL1SysRegs and WriteEL1SysRegs transfer the whole delegated
	// level register bank.
	ReadEL1SysRegs() EL1SysRegs
	WriteEL1SysRegs(EL1SysRegs)

	// ReadEL3SysRegs and WriteEL3SysRegs transfer the monitor's own
	// register bank.
	ReadEL3SysRegs() EL3SysRegs
	WriteEL3SysRegs(EL3SysRegs)

	// SPSel returns the current stack pointer selection, ModeSPEL0 or
	// ModeSPELx.
	SPSel() uint64

	// SetSPEL3 points the banked SP_EL3 at ctx and switches back to
	// SP_EL0.
	SetSPEL3(ctx *Context)

	// ReadIDAA64PFR0 reads ID_AA64PFR0_EL1.
	ReadIDAA64PFR0() uint64

	// PowerDown enters the lowest power state. It does not return on
	// hardware; the core restarts at the warm boot entry point.
	PowerDown()
}
