// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/topology"
)

// Table prints the affinity instances, their state and the exception
// stack of every core as a table.
type Table struct {
	W io.Writer
	// Topology, when set, adds the exception stacks.
	Topology *topology.Static

	t table.Writer
}

func (v *Table) setEnv(e Env) {
	if v.Topology == nil {
		v.Topology = e.Topology
	}
}

// Run wraps Visit and performs some setup and teardown tasks.
func (v *Table) Run(a psci.Affinity) error {
	v.t = table.NewWriter()
	if v.W == nil {
		v.W = os.Stdout
	}
	v.t.SetOutputMirror(v.W)
	header := table.Row{"Affinity", "MPIDR", "Level", "State"}
	if v.Topology != nil {
		v.t.SetTitle("%s", v.Topology.Platform())
		header = append(header, "Core", "Stack Top", "Stack Size")
	}
	v.t.AppendHeader(header)
	if err := a.Apply(v); err != nil {
		return err
	}
	v.t.Render()
	return nil
}

// Visit applies the Table visitor to the tree and its nodes.
func (v *Table) Visit(a psci.Affinity) error {
	n, ok := a.(*psci.Node)
	if !ok {
		return a.ApplyChildren(v)
	}
	row := table.Row{v.label(n), n.MPIDR, n.Level}
	if !n.Present {
		row = append(row, "absent")
		v.t.AppendRow(row)
		return nil
	}
	row = append(row, n.State())
	if v.Topology != nil && n.Level == 0 {
		size := v.Topology.Description().ExceptionStack.Size
		row = append(row, n.Core, fmt.Sprintf("%#x", v.Topology.ExceptionStack(n.MPIDR)), humanize.IBytes(size))
	}
	v.t.AppendRow(row)
	return n.ApplyChildren(v)
}

func (v *Table) label(n *psci.Node) string {
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	name := "cpu"
	if n.Level > 0 {
		name = fmt.Sprintf("aff%d", n.Level)
	}
	return fmt.Sprintf("%s%s%d", strings.Repeat("  ", depth), name, n.MPIDR.Affinity(n.Level))
}

func init() {
	RegisterCLI("table", "print the affinity tree in a pretty table", 0, func(args []string) (psci.Visitor, error) {
		return &Table{}, nil
	})
}
