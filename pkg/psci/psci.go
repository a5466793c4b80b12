// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package psci implements the Power State Coordination Interface on the
// monitor side: the affinity tree, the power state machine driving it, and
// the dispatcher for the PSCI function identifiers.
package psci

import (
	"fmt"
)

// PSCI version implemented.
const (
	VersionMajor = 0
	VersionMinor = 2
)

// Function identifiers. The 0xc4 range is the SMC64 calling convention
// alias of the 0x84 SMC32 one.
const (
	FnVersion            uint32 = 0x84000000
	FnCPUSuspend32       uint32 = 0x84000001
	FnCPUSuspend64       uint32 = 0xc4000001
	FnCPUOff             uint32 = 0x84000002
	FnCPUOn32            uint32 = 0x84000003
	FnCPUOn64            uint32 = 0xc4000003
	FnAffinityInfo32     uint32 = 0x84000004
	FnAffinityInfo64     uint32 = 0xc4000004
	FnMigrate32          uint32 = 0x84000005
	FnMigrate64          uint32 = 0xc4000005
	FnMigrateInfoType    uint32 = 0x84000006
	FnMigrateInfoUpCPU32 uint32 = 0x84000007
	FnMigrateInfoUpCPU64 uint32 = 0xc4000007
	FnSystemOff          uint32 = 0x84000008
	FnSystemReset        uint32 = 0x84000009

	// SMCUnknown is returned for function identifiers nobody implements.
	SMCUnknown uint64 = 0xffffffff

	smc64Bit = 1 << 30
)

// Code is a PSCI return code. Codes are protocol outcomes handed back to
// the caller; they never signal a monitor failure.
type Code int32

const (
	Success         Code = 0
	NotSupported    Code = -1
	InvalidParams   Code = -2
	Denied          Code = -3
	AlreadyOn       Code = -4
	OnPending       Code = -5
	InternalFailure Code = -6
	NotPresent      Code = -7
	Disabled        Code = -8
)

func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case NotSupported:
		return "NOT_SUPPORTED"
	case InvalidParams:
		return "INVALID_PARAMETERS"
	case Denied:
		return "DENIED"
	case AlreadyOn:
		return "ALREADY_ON"
	case OnPending:
		return "ON_PENDING"
	case InternalFailure:
		return "INTERNAL_FAILURE"
	case NotPresent:
		return "NOT_PRESENT"
	case Disabled:
		return "DISABLED"
	}
	return fmt.Sprintf("Code(%d)", int32(c))
}

// Register returns the code as it is written to x0, sign extended.
func (c Code) Register() uint64 {
	return uint64(int64(c))
}

// Trusted OS migration capabilities returned by MIGRATE_INFO_TYPE.
const (
	TOSUniprocessorMigrateCapable    = 0
	TOSUniprocessorNotMigrateCapable = 1
	TOSNotPresentMultiprocessor      = 2
)

// Power state types.
const (
	PowerStateStandby   = 0
	PowerStatePowerDown = 1
)

// PowerState is the power_state argument of CPU_SUSPEND.
type PowerState uint32

const (
	pstateIDMask     = 0xffff
	pstateTypeShift  = 16
	pstateTypeMask   = 0x1
	pstateLevelShift = 24
	pstateLevelMask  = 0x3
)

// NewPowerState packs a power state word.
func NewPowerState(typ uint32, level uint, id uint16) PowerState {
	return PowerState((typ&pstateTypeMask)<<pstateTypeShift |
		(uint32(level)&pstateLevelMask)<<pstateLevelShift |
		uint32(id))
}

// Type is PowerStateStandby or PowerStatePowerDown.
func (p PowerState) Type() uint32 {
	return uint32(p>>pstateTypeShift) & pstateTypeMask
}

// AffinityLevel is the highest affinity level the request applies to.
func (p PowerState) AffinityLevel() uint {
	return uint(p>>pstateLevelShift) & pstateLevelMask
}

// ID is the platform specific state identifier.
func (p PowerState) ID() uint16 {
	return uint16(p & pstateIDMask)
}
