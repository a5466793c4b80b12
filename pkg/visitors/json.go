// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/linuxboot/secmon/pkg/psci"
)

// NodeInfo is the exported view of an affinity instance.
type NodeInfo struct {
	MPIDR    string
	Level    uint
	Present  bool
	State    string     `json:",omitempty"`
	Core     *int       `json:",omitempty"`
	Children []NodeInfo `json:",omitempty"`
}

// Snapshot returns the view of n and the instances below it. Each state is
// read under its node's lock; the snapshot as a whole is not atomic.
func Snapshot(n *psci.Node) NodeInfo {
	info := NodeInfo{
		MPIDR:   n.MPIDR.String(),
		Level:   n.Level,
		Present: n.Present,
	}
	if !n.Present {
		return info
	}
	info.State = n.State().String()
	if n.Level == 0 {
		core := int(n.Core)
		info.Core = &core
	}
	for _, c := range n.Children() {
		info.Children = append(info.Children, Snapshot(c))
	}
	return info
}

// JSON prints the affinity tree, or a node, as JSON.
type JSON struct {
	W io.Writer
}

// Run wraps Visit and performs some setup and teardown tasks.
func (v *JSON) Run(a psci.Affinity) error {
	if v.W == nil {
		v.W = os.Stdout
	}
	return a.Apply(v)
}

// Visit applies the JSON visitor to the tree or a node.
func (v *JSON) Visit(a psci.Affinity) error {
	var out any
	switch a := a.(type) {
	case *psci.Tree:
		roots := []NodeInfo{}
		for _, n := range a.Roots() {
			roots = append(roots, Snapshot(n))
		}
		out = roots
	case *psci.Node:
		out = Snapshot(a)
	default:
		return fmt.Errorf("unexpected affinity %T", a)
	}
	b, err := json.MarshalIndent(out, "", "\t")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(v.W, string(b))
	return err
}

func init() {
	RegisterCLI("json", "produce JSON for the affinity tree", 0, func(args []string) (psci.Visitor, error) {
		return &JSON{}, nil
	})
}
