// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/log"
)

// Service is the PSCI implementation of one system. Every core calls into
// the same Service concurrently.
type Service struct {
	topo Topology
	plat Platform
	cm   *cm.Manager
	tree *Tree
	spd  SecurePayload

	// ns are the non-secure contexts, owned here and lent to the
	// context registry.
	ns []arch.Context

	lockObserver func(n *Node, acquired bool)
}

// Option configures a Service.
type Option func(*Service)

// WithLockObserver calls fn right after every affinity lock is taken and
// right before it is released.
func WithLockObserver(fn func(n *Node, acquired bool)) Option {
	return func(s *Service) {
		s.lockObserver = fn
	}
}

// New builds the affinity tree with every instance OFF and registers a
// non-secure context for every present core with mgr.
func New(topo Topology, plat Platform, mgr *cm.Manager, opts ...Option) *Service {
	s := &Service{
		topo: topo,
		plat: plat,
		cm:   mgr,
		tree: newTree(topo),
	}
	for _, opt := range opts {
		opt(s)
	}

	cores := s.tree.Cores()
	halt.Assert(len(cores) == topo.CoreCount(), "affinity map has %d cores, topology %d", len(cores), topo.CoreCount())
	s.ns = make([]arch.Context, len(cores))
	for _, n := range cores {
		mgr.Set(n.MPIDR, cm.NonSecure, &s.ns[n.Core])
	}
	log.Infof("psci: %d cores, max affinity level %d", len(cores), s.tree.maxLevel)
	return s
}

// Tree returns the affinity map.
func (s *Service) Tree() *Tree {
	return s.tree
}

// Contexts returns the context manager the service drives.
func (s *Service) Contexts() *cm.Manager {
	return s.cm
}

// RegisterSecurePayload installs the secure payload dispatcher hooks. It
// must be called during cold boot, before any secondary core runs.
func (s *Service) RegisterSecurePayload(spd SecurePayload) {
	s.spd = spd
}

// Start marks the affinity path of the cold booting core ON.
func (s *Service) Start(primary arch.MPIDR) {
	path := s.tree.path(primary)
	s.acquire(path)
	defer s.release(path)
	for _, n := range path {
		n.state = StateOn
	}
}

// acquire takes the locks of path from the lowest level up. Every
// operation takes locks in this order, which is what keeps cores working
// on overlapping parts of the tree from deadlocking.
func (s *Service) acquire(path []*Node) {
	for i, n := range path {
		if i > 0 && n.Level <= path[i-1].Level {
			halt.Halt("lock order: level %d after level %d", n.Level, path[i-1].Level)
		}
		n.mu.Lock()
		if s.lockObserver != nil {
			s.lockObserver(n, true)
		}
	}
}

// release drops the locks of path in the reverse order of acquire.
func (s *Service) release(path []*Node) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if s.lockObserver != nil {
			s.lockObserver(n, false)
		}
		n.mu.Unlock()
	}
}

// validTarget reports whether mpidr names a present core.
func (s *Service) validTarget(mpidr arch.MPIDR) bool {
	if !mpidr.Valid() {
		return false
	}
	n := s.tree.Node(mpidr, 0)
	return n != nil && n.Present
}
