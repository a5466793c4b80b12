// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"sort"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/log"
)

// HandleSMC services a PSCI call from the non-secure world on cpu. The
// result is written to x0 of the caller's non-secure context and returned.
// Error codes are sign extended to 64 bits for SMC32 calls too.
//
// CPU_OFF and CPU_SUSPEND only return on failure, SYSTEM_OFF and
// SYSTEM_RESET never do.
func (s *Service) HandleSMC(cpu arch.CPU, fid uint32, x1, x2, x3, x4 uint64) uint64 {
	if fid&smc64Bit == 0 {
		// SMC32: only the low halves of the arguments are defined.
		x1, x2, x3, x4 = uint64(uint32(x1)), uint64(uint32(x2)), uint64(uint32(x3)), uint64(uint32(x4))
	}

	var rc uint64
	switch fid {
	case FnVersion:
		rc = uint64(Version())

	case FnCPUOff:
		rc = s.cpuOff(cpu).Register()

	case FnCPUSuspend32, FnCPUSuspend64:
		rc = s.cpuSuspend(cpu, PowerState(x1), x2, x3).Register()

	case FnCPUOn32, FnCPUOn64:
		rc = s.CPUOn(cpu, arch.MPIDR(x1), x2, x3).Register()

	case FnAffinityInfo32, FnAffinityInfo64:
		rc = uint64(int64(s.AffinityInfo(arch.MPIDR(x1), uint(x2))))

	case FnMigrate32, FnMigrate64:
		rc = s.Migrate(arch.MPIDR(x1)).Register()

	case FnMigrateInfoType:
		rc = uint64(s.MigrateInfoType())

	case FnMigrateInfoUpCPU32, FnMigrateInfoUpCPU64:
		rc = s.MigrateInfoUpCPU().Register()

	case FnSystemOff:
		s.SystemOff()
		halt.Unreachable("SYSTEM_OFF returned")

	case FnSystemReset:
		s.SystemReset()
		halt.Unreachable("SYSTEM_RESET returned")

	default:
		rc = SMCUnknown
		log.Warnf("Unimplemented psci call -> 0x%x", fid)
	}

	s.cm.SetGPReg(cpu.MPIDR(), cm.NonSecure, 0, rc)
	return rc
}

func (s *Service) cpuOff(cpu arch.CPU) Code {
	rc := s.CPUOff(cpu)
	if rc != Success {
		halt.Assert(rc == Denied, "CPU_OFF returned %v", rc)
		return rc
	}
	cpu.PowerDown()
	halt.Unreachable("CPU_OFF power down returned")
	return rc
}

func (s *Service) cpuSuspend(cpu arch.CPU, powerState PowerState, entrypoint, contextID uint64) Code {
	rc := s.CPUSuspend(cpu, powerState, entrypoint, contextID)
	if rc != Success {
		halt.Assert(rc == InvalidParams, "CPU_SUSPEND returned %v", rc)
		return rc
	}
	cpu.PowerDown()
	halt.Unreachable("CPU_SUSPEND power down returned")
	return rc
}

// Function describes a PSCI call for tools that issue calls by name.
type Function struct {
	Name string
	ID   uint32
	Args int
}

var functions = map[string]Function{
	"version":             {"version", FnVersion, 0},
	"cpu_suspend":         {"cpu_suspend", FnCPUSuspend64, 3},
	"cpu_off":             {"cpu_off", FnCPUOff, 0},
	"cpu_on":              {"cpu_on", FnCPUOn64, 3},
	"affinity_info":       {"affinity_info", FnAffinityInfo64, 2},
	"migrate":             {"migrate", FnMigrate64, 1},
	"migrate_info_type":   {"migrate_info_type", FnMigrateInfoType, 0},
	"migrate_info_up_cpu": {"migrate_info_up_cpu", FnMigrateInfoUpCPU64, 0},
	"system_off":          {"system_off", FnSystemOff, 0},
	"system_reset":        {"system_reset", FnSystemReset, 0},
}

// FunctionByName looks up a call by its lower case PSCI name.
func FunctionByName(name string) (Function, bool) {
	f, ok := functions[name]
	return f, ok
}

// Functions lists the calls sorted by name.
func Functions() []Function {
	out := make([]Function, 0, len(functions))
	for _, f := range functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
