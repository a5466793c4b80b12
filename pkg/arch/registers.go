// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

// ***************************************
// SCR_EL3, Secure Configuration Register.
// ***************************************

const (
	SCRNonSecure = 1 << 0
	SCRIRQ       = 1 << 1
	SCRFIQ       = 1 << 2
	SCREA        = 1 << 3
	SCRRES1      = (1 << 4) | (1 << 5)
	SCRSMD       = 1 << 7
	SCRHCE       = 1 << 8
	SCRSIF       = 1 << 9
	SCRRW        = 1 << 10 // lower levels are AArch64
	SCRST        = 1 << 11
)

// ***************************************
// SPSR_EL3, Saved Program Status Register.
// ***************************************

const (
	ModeEL0 = 0
	ModeEL1 = 1
	ModeEL2 = 2
	ModeEL3 = 3

	// SPSel values.
	ModeSPEL0 = 0
	ModeSPELx = 1

	ModeRW64 = 0
	ModeRW32 = 1

	// AArch32 modes, M[3:0].
	Mode32SVC = 0x3
	Mode32HYP = 0xa

	DAIFFIQ   = 1 << 0
	DAIFIRQ   = 1 << 1
	DAIFAbort = 1 << 2
	DAIFDebug = 1 << 3
	DAIFAll   = DAIFFIQ | DAIFIRQ | DAIFAbort | DAIFDebug

	// AIF for AArch32, no debug bit.
	AIFAll = DAIFFIQ | DAIFIRQ | DAIFAbort

	ISAArm   = 0
	ISAThumb = 1

	EndianLittle = 0
	EndianBig    = 1

	spsrDAIFShift  = 6
	spsrModeShift  = 4
	spsrELShift    = 2
	spsrThumbShift = 5
	spsrEShift     = 9
)

// SPSR64 builds an SPSR_EL3 value returning to AArch64 at el using the
// given stack pointer selection with the DAIF bits set.
func SPSR64(el, sp, daif uint32) uint32 {
	return ModeRW64<<spsrModeShift |
		(el&3)<<spsrELShift |
		sp&1 |
		(daif&0xf)<<spsrDAIFShift
}

// SPSR32 builds an SPSR_EL3 value returning to AArch32 in mode.
func SPSR32(mode, isa, endian, aif uint32) uint32 {
	return ModeRW32<<spsrModeShift |
		mode&0xf |
		(isa&1)<<spsrThumbShift |
		(endian&1)<<spsrEShift |
		(aif&7)<<spsrDAIFShift
}

// SCTLR_ELx.EE, exception endianness.
const SCTLREE = 1 << 25

// ID_AA64PFR0_EL1 EL2 field.
const (
	PFR0EL2Shift = 8
	PFR0EL2Mask  = 0xf
)

// EL2Implemented decodes ID_AA64PFR0_EL1.
func EL2Implemented(pfr0 uint64) bool {
	return (pfr0>>PFR0EL2Shift)&PFR0EL2Mask != 0
}
