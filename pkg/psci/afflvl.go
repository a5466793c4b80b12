// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psci

import (
	"fmt"
	"sync"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/topology"
)

// State is the power state of an affinity instance. The first three values
// are the ones AFFINITY_INFO reports.
type State uint32

const (
	StateOn        State = 0
	StateOff       State = 1
	StateOnPending State = 2
	StateSuspend   State = 3
)

func (s State) String() string {
	switch s {
	case StateOn:
		return "ON"
	case StateOff:
		return "OFF"
	case StateOnPending:
		return "ON_PENDING"
	case StateSuspend:
		return "SUSPEND"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Affinity is implemented by the tree and by every node in it.
type Affinity interface {
	// Apply a visitor to the Affinity.
	Apply(v Visitor) error

	// Apply a visitor to all the direct children of the Affinity
	// (excluding the Affinity itself).
	ApplyChildren(v Visitor) error
}

// Visitor represents an operation which can be applied to the affinity
// tree.
type Visitor interface {
	// Run wraps Visit and performs some setup and teardown tasks.
	Run(a Affinity) error

	// Visit applies the visitor to an Affinity.
	Visit(a Affinity) error
}

// Node is one affinity instance.
//
// The state of a node only changes while the locks of every node from
// level 0 to the top of the tree on some path through it are held, so
// holding a node's lock is enough to read the state of its children.
type Node struct {
	MPIDR   arch.MPIDR
	Level   uint
	Present bool

	// Core is the linear position of a present level 0 node.
	Core topology.CoreID

	mu       sync.Mutex
	state    State
	parent   *Node
	children []*Node
}

// State returns the current state under the node's lock.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Parent is nil at the top level.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children are the instances one level down.
func (n *Node) Children() []*Node {
	return n.children
}

// Apply calls the visitor on the Node.
func (n *Node) Apply(v Visitor) error {
	return v.Visit(n)
}

// ApplyChildren calls the visitor on each child node of Node.
func (n *Node) ApplyChildren(v Visitor) error {
	for _, c := range n.children {
		if err := c.Apply(v); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("affinity %v level %d", n.MPIDR, n.Level)
}

// childrenIn reports whether every present child is in one of states.
// The caller holds n's lock.
func (n *Node) childrenIn(states ...State) bool {
	for _, c := range n.children {
		if !c.Present {
			continue
		}
		ok := false
		for _, s := range states {
			if c.state == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

type nodeKey struct {
	level uint
	mpidr arch.MPIDR
}

// Tree is the affinity map: one Node per affinity instance of the
// platform, built once and never resized.
type Tree struct {
	maxLevel uint
	roots    []*Node
	nodes    map[nodeKey]*Node
}

func newTree(topo Topology) *Tree {
	t := &Tree{
		maxLevel: topo.MaxAffinityLevel(),
		nodes:    map[nodeKey]*Node{},
	}
	t.roots = t.build(topo, t.maxLevel, 0, nil)
	return t
}

// build creates the instances at level inside parentMPIDR, recursing into
// the present ones.
func (t *Tree) build(topo Topology, level uint, parentMPIDR arch.MPIDR, parent *Node) []*Node {
	count := topo.AffinityCount(level, parentMPIDR)
	nodes := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		mpidr := parentMPIDR.WithAffinity(level, uint8(i))
		n := &Node{
			MPIDR:   mpidr,
			Level:   level,
			Present: topo.AffinityPresent(level, mpidr),
			state:   StateOff,
			parent:  parent,
		}
		if n.Present {
			if level == 0 {
				pos, err := topo.CorePos(mpidr)
				if err != nil {
					halt.Halt("affinity map: %v", err)
				}
				n.Core = pos
			} else {
				n.children = t.build(topo, level-1, mpidr, n)
			}
		}
		t.nodes[nodeKey{level, mpidr}] = n
		nodes = append(nodes, n)
	}
	return nodes
}

// MaxLevel is the highest affinity level of the tree.
func (t *Tree) MaxLevel() uint {
	return t.maxLevel
}

// Roots are the instances at MaxLevel.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Node finds the instance at level containing mpidr, or nil.
func (t *Tree) Node(mpidr arch.MPIDR, level uint) *Node {
	if level > t.maxLevel {
		return nil
	}
	return t.nodes[nodeKey{level, mpidr.Mask(level)}]
}

// Cores lists the present level 0 nodes in linear order.
func (t *Tree) Cores() []*Node {
	var cores []*Node
	var walk func(ns []*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			if !n.Present {
				continue
			}
			if n.Level == 0 {
				cores = append(cores, n)
				continue
			}
			walk(n.children)
		}
	}
	walk(t.roots)
	return cores
}

// path returns the instances containing a present core from level 0 to
// MaxLevel, indexed by level.
func (t *Tree) path(mpidr arch.MPIDR) []*Node {
	nodes := make([]*Node, t.maxLevel+1)
	for l := uint(0); l <= t.maxLevel; l++ {
		n := t.Node(mpidr, l)
		if n == nil || !n.Present {
			halt.Halt("no affinity path for core %v at level %d", mpidr, l)
		}
		nodes[l] = n
	}
	return nodes
}

// Apply calls the visitor on the Tree.
func (t *Tree) Apply(v Visitor) error {
	return v.Visit(t)
}

// ApplyChildren calls the visitor on each top level node.
func (t *Tree) ApplyChildren(v Visitor) error {
	for _, n := range t.roots {
		if err := n.Apply(v); err != nil {
			return err
		}
	}
	return nil
}
