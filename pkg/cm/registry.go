// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cm is the context management library. Runtime services use it to
// share the per-core Context of each security state, to move register banks
// in and out of those contexts, and to program the next exception return.
//
// The library never allocates a Context: the power management service owns
// the non-secure ones, a secure payload dispatcher owns the secure ones.
package cm

import (
	"fmt"
	"sync/atomic"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/topology"
)

// SecurityState selects a world.
type SecurityState uint32

const (
	Secure    SecurityState = 0
	NonSecure SecurityState = 1
)

func (s SecurityState) String() string {
	switch s {
	case Secure:
		return "secure"
	case NonSecure:
		return "non-secure"
	}
	return fmt.Sprintf("SecurityState(%d)", uint32(s))
}

// CorePositioner maps an MPIDR to a linear core position.
type CorePositioner interface {
	CorePos(mpidr arch.MPIDR) (topology.CoreID, error)
	CoreCount() int
}

type slots struct {
	ptr [2]atomic.Pointer[arch.Context]
}

// Registry holds, per core, the current Context of each security state.
type Registry struct {
	topo  CorePositioner
	cores []slots
}

// NewRegistry sizes a Registry for every core of topo.
func NewRegistry(topo CorePositioner) *Registry {
	return &Registry{
		topo:  topo,
		cores: make([]slots, topo.CoreCount()),
	}
}

func (r *Registry) slot(mpidr arch.MPIDR, state SecurityState) *atomic.Pointer[arch.Context] {
	halt.Assert(state <= NonSecure, "invalid security state %d", uint32(state))
	pos, err := r.topo.CorePos(mpidr)
	if err != nil {
		halt.Halt("context lookup: %v", err)
	}
	halt.Assert(int(pos) < len(r.cores), "core position %d out of range", pos)
	return &r.cores[pos].ptr[state]
}

// Get returns the Context most recently set for the core and security
// state, or nil if none was set.
func (r *Registry) Get(mpidr arch.MPIDR, state SecurityState) *arch.Context {
	return r.slot(mpidr, state).Load()
}

// Set records ctx as the Context of the core and security state.
func (r *Registry) Set(mpidr arch.MPIDR, state SecurityState, ctx *arch.Context) {
	r.slot(mpidr, state).Store(ctx)
}
