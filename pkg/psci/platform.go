// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/topology"
)

// Topology is what the power state machine needs to know about the
// platform's affinity hierarchy. *topology.Static implements it.
type Topology interface {
	MaxAffinityLevel() uint
	AffinityCount(level uint, mpidr arch.MPIDR) int
	AffinityPresent(level uint, mpidr arch.MPIDR) bool
	CorePos(mpidr arch.MPIDR) (topology.CoreID, error)
	CoreCount() int
	ExceptionStack(mpidr arch.MPIDR) uint64
	WarmEntry() uint64
}

// Platform performs the physical side of each affinity level transition.
// Every hook is called with the locks of the whole affinity path held and
// gets the state of the instance before the transition.
type Platform interface {
	// AffinityOn powers up an instance. At level 0 it must also release
	// the target core so it starts at entrypoint.
	AffinityOn(target arch.MPIDR, entrypoint uint64, level uint, state State) error
	AffinityOff(mpidr arch.MPIDR, level uint, state State) error
	AffinitySuspend(mpidr arch.MPIDR, entrypoint uint64, level uint, state State) error
	AffinityOnFinish(mpidr arch.MPIDR, level uint, state State) error
	AffinitySuspendFinish(mpidr arch.MPIDR, level uint, state State) error
}

// SystemPower is implemented by platforms able to turn off or reset the
// whole system. Neither method returns.
type SystemPower interface {
	SystemOff()
	SystemReset()
}

// SecurePayload lets the secure payload dispatcher follow power events of
// the cores it runs on. It owns the secure contexts.
type SecurePayload interface {
	// CPUOff is called before the calling core is turned off. An error
	// denies the request.
	CPUOff(mpidr arch.MPIDR) error
	CPUSuspend(mpidr arch.MPIDR, powerState PowerState)
	CPUOnFinish(mpidr arch.MPIDR)
	CPUSuspendFinish(mpidr arch.MPIDR)
}
