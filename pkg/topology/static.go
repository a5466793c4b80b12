// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"sort"

	"github.com/linuxboot/secmon/pkg/arch"
)

// CoreID is the linear position of a present core, in [0, CoreCount).
type CoreID int

type instanceKey struct {
	level uint
	mpidr arch.MPIDR
}

type instance struct {
	present  bool
	children int
}

// Static is a validated Description with its lookups precomputed. It never
// changes after construction.
type Static struct {
	desc      Description
	instances map[instanceKey]instance
	positions map[arch.MPIDR]CoreID
	cores     []arch.MPIDR
}

// New validates d and builds its lookup tables. Present cores are numbered
// in depth-first order, lowest affinity value first.
func New(d Description) (*Static, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := &Static{
		desc:      d,
		instances: map[instanceKey]instance{},
		positions: map[arch.MPIDR]CoreID{},
	}
	s.instances[instanceKey{level: d.MaxAffinityLevel + 1}] = instance{present: true, children: len(d.Nodes)}
	for i, n := range d.Nodes {
		mpidr := arch.MPIDR(0).WithAffinity(d.MaxAffinityLevel, uint8(i))
		s.add(n, d.MaxAffinityLevel, mpidr)
	}
	return s, nil
}

func (s *Static) add(n Node, level uint, mpidr arch.MPIDR) {
	children := n.children()
	s.instances[instanceKey{level, mpidr}] = instance{present: !n.Absent, children: len(children)}
	if n.Absent {
		return
	}
	if level == 0 {
		s.positions[mpidr] = CoreID(len(s.cores))
		s.cores = append(s.cores, mpidr)
		return
	}
	for i, c := range children {
		s.add(c, level-1, mpidr.WithAffinity(level-1, uint8(i)))
	}
}

// Platform returns the platform name.
func (s *Static) Platform() string {
	return s.desc.Platform
}

// Description returns the description s was built from.
func (s *Static) Description() Description {
	return s.desc
}

// MaxAffinityLevel is the highest level with affinity instances.
func (s *Static) MaxAffinityLevel() uint {
	return s.desc.MaxAffinityLevel
}

// AffinityCount returns how many instances exist at level inside the
// instance at level+1 containing mpidr. Absent parents have none.
func (s *Static) AffinityCount(level uint, mpidr arch.MPIDR) int {
	parent := instanceKey{level + 1, mpidr.Mask(level + 1)}
	if level >= s.desc.MaxAffinityLevel {
		parent = instanceKey{level: s.desc.MaxAffinityLevel + 1}
	}
	in, ok := s.instances[parent]
	if !ok || !in.present {
		return 0
	}
	return in.children
}

// AffinityPresent reports whether the instance at level containing mpidr
// is implemented.
func (s *Static) AffinityPresent(level uint, mpidr arch.MPIDR) bool {
	in, ok := s.instances[instanceKey{level, mpidr.Mask(level)}]
	return ok && in.present
}

// CorePos maps a present core to its linear position.
func (s *Static) CorePos(mpidr arch.MPIDR) (CoreID, error) {
	pos, ok := s.positions[mpidr.Mask(0)]
	if !ok {
		return 0, &ErrUnknownCore{MPIDR: mpidr}
	}
	return pos, nil
}

// CoreCount is the number of present cores.
func (s *Static) CoreCount() int {
	return len(s.cores)
}

// Cores lists present cores by linear position.
func (s *Static) Cores() []arch.MPIDR {
	return append([]arch.MPIDR(nil), s.cores...)
}

// ExceptionStack returns the initial exception stack pointer of a core.
// Stacks grow down, so this is the top of the core's slice of the region.
func (s *Static) ExceptionStack(mpidr arch.MPIDR) uint64 {
	pos, err := s.CorePos(mpidr)
	if err != nil {
		return 0
	}
	st := s.desc.ExceptionStack
	return st.Base + uint64(pos+1)*st.Size
}

// WarmEntry is the address secondary and resumed cores start at.
func (s *Static) WarmEntry() uint64 {
	return s.desc.WarmEntry
}

// Levels lists instance MPIDRs at a level, present or not, sorted.
func (s *Static) Levels(level uint) []arch.MPIDR {
	var out []arch.MPIDR
	for k := range s.instances {
		if k.level == level {
			out = append(out, k.mpidr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
