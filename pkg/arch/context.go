// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch describes the AArch64 register state secmon saves and
// restores, and the privileged primitives it needs from the core it runs on.
package arch

// GPRegs are the general purpose registers saved on entry to the monitor.
type GPRegs struct {
	X     [31]uint64
	SPEL0 uint64
}

// EL1SysRegs is the system register bank of the level the delegated world
// executes at.
type EL1SysRegs struct {
	SPSREL1    uint64
	ELREL1     uint64
	SPSRAbt    uint64
	SPSRUnd    uint64
	SPSRIRQ    uint64
	SPSRFIQ    uint64
	SCTLREL1   uint64
	ACTLREL1   uint64
	CPACREL1   uint64
	CSSELREL1  uint64
	SPEL1      uint64
	ESREL1     uint64
	TTBR0EL1   uint64
	TTBR1EL1   uint64
	MAIREL1    uint64
	AMAIREL1   uint64
	TCREL1     uint64
	TPIDREL1   uint64
	TPIDREL0   uint64
	TPIDRROEL0 uint64
	PAREL1     uint64
	FAREL1     uint64
	AFSR0EL1   uint64
	AFSR1EL1   uint64
	CONTEXTIDR uint64
	VBAREL1    uint64
	CNTKCTLEL1 uint64
	DACR32EL2  uint64
	IFSR32EL2  uint64
	FPEXC32EL2 uint64
}

// EL3SysRegs is the monitor's own system register bank for one world.
type EL3SysRegs struct {
	SCTLR    uint64
	CPTR     uint64
	TCR      uint64
	MAIR     uint64
	VBAR     uint64
	CNTFRQ   uint64
	CPUECTLR uint64
}

// EL3State is the monitor state consumed by an exception return.
type EL3State struct {
	SCR         uint64
	ELR         uint64
	SPSR        uint64
	ExceptionSP uint64
	RuntimeSP   uint64
}

// Context is the saved state of one world on one core.
type Context struct {
	GPRegs GPRegs
	EL1    EL1SysRegs
	EL3    EL3State
	EL3Sys EL3SysRegs

	// Reserved for extended register groups (FP/SIMD and later).
	Reserved [8]uint64
}
