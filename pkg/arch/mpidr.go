// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arch

import (
	"fmt"
)

// MaxAffinityLevel is the highest affinity level MPIDR_EL1 can encode.
const MaxAffinityLevel = 3

const (
	affinityBits  = 8
	affinityField = 0xff

	// MPIDRAffinityMask selects Aff0, Aff1, Aff2 and Aff3.
	MPIDRAffinityMask = MPIDR(0xff00ffffff)

	// MPIDRMultithread is the MT bit.
	MPIDRMultithread = MPIDR(1 << 24)
	// MPIDRUniprocessor is the U bit.
	MPIDRUniprocessor = MPIDR(1 << 30)
	// MPIDRRES1 is the bit that always reads as one.
	MPIDRRES1 = MPIDR(1 << 31)
)

var affinityShift = [MaxAffinityLevel + 1]uint{0, 8, 16, 32}

// MPIDR is the hardware affinity identifier of a core.
type MPIDR uint64

// ComposeMPIDR builds an MPIDR from affinity fields, Aff0 first.
func ComposeMPIDR(aff ...uint8) MPIDR {
	if len(aff) > MaxAffinityLevel+1 {
		panic(fmt.Sprintf("too many affinity fields: %d", len(aff)))
	}
	var m MPIDR
	for level, v := range aff {
		m |= MPIDR(v) << affinityShift[level]
	}
	return m
}

// Affinity returns the affinity field of the given level.
func (m MPIDR) Affinity(level uint) uint8 {
	if level > MaxAffinityLevel {
		return 0
	}
	return uint8((m >> affinityShift[level]) & affinityField)
}

// WithAffinity returns m with the field of the given level replaced.
func (m MPIDR) WithAffinity(level uint, v uint8) MPIDR {
	shift := affinityShift[level]
	return m&^(affinityField<<shift) | MPIDR(v)<<shift
}

// Mask keeps the affinity fields at or above level and clears the rest,
// including every non-affinity bit. The result names the affinity
// instance of that level containing m.
func (m MPIDR) Mask(level uint) MPIDR {
	m &= MPIDRAffinityMask
	for l := uint(0); l < level && l <= MaxAffinityLevel; l++ {
		m &^= affinityField << affinityShift[l]
	}
	return m
}

// Valid reports whether only affinity bits and the architecturally
// defined flag bits are set.
func (m MPIDR) Valid() bool {
	return m&^(MPIDRAffinityMask|MPIDRMultithread|MPIDRUniprocessor|MPIDRRES1) == 0
}

func (m MPIDR) String() string {
	return fmt.Sprintf("%#x", uint64(m&MPIDRAffinityMask))
}
