// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
)

const testTopology = `
platform: test
max_affinity_level: 1
warm_entry: 0x04001000
exception_stack:
  base: 0x04020000
  size: 0x800
nodes:
  - cores: 2
  - children:
      - {}
      - absent: true
      - {}
`

// testEnv boots a system with cores 0x0 and 0x102 ON and the rest OFF.
func testEnv(t *testing.T) Env {
	t.Helper()
	topo, err := topology.Load(strings.NewReader(testTopology))
	require.NoError(t, err)
	m := sim.New(topo)
	mgr := cm.NewManager(cm.NewRegistry(topo), topo)
	svc := psci.New(topo, m, mgr)
	m.Attach(svc)
	svc.Start(0x0)
	mgr.SetEL3EretContext(0x0, cm.NonSecure, 0x88000000, 0x3c9, arch.SCRRW|arch.SCRNonSecure|arch.SCRRES1)

	require.Equal(t, psci.Success, svc.CPUOn(m.Core(0x0), 0x102, 0x88000000, 0x1234))
	require.NoError(t, m.Wait())
	return Env{PSCI: svc, Topology: topo}
}

func TestParseCLI(t *testing.T) {
	v, err := ParseCLI([]string{"count", "find", "0x10.", "context", "ns", "table"})
	require.NoError(t, err)
	require.Len(t, v, 4)
	assert.IsType(t, &Count{}, v[0])
	assert.IsType(t, &Find{}, v[1])
	assert.IsType(t, &Context{}, v[2])
	assert.IsType(t, &Table{}, v[3])

	_, err = ParseCLI([]string{"frobnicate"})
	assert.ErrorContains(t, err, "could not find command")
	_, err = ParseCLI([]string{"find"})
	assert.ErrorContains(t, err, "too few arguments")
	_, err = ParseCLI([]string{"find_state", "HALF_ON"})
	assert.Error(t, err)

	list := ListCLI()
	for _, name := range []string{"context", "count", "find", "find_level", "find_state", "json", "table"} {
		assert.Contains(t, list, "  "+name)
	}
}

func TestCount(t *testing.T) {
	e := testEnv(t)
	count := &Count{}
	require.NoError(t, count.Run(e.PSCI.Tree()))

	require.Len(t, count.Levels, 2)
	assert.Equal(t, map[string]int{"ON": 2, "OFF": 2}, count.Levels[0])
	assert.Equal(t, map[string]int{"ON": 2}, count.Levels[1])
	assert.Equal(t, 1, count.Absent)
}

func TestFind(t *testing.T) {
	e := testEnv(t)
	tree := e.PSCI.Tree()

	find := &Find{Predicate: FindAndPredicate(FindLevelPredicate(0), FindStatePredicate(psci.StateOff))}
	require.NoError(t, find.Run(tree))
	var got []arch.MPIDR
	for _, n := range find.Matches {
		got = append(got, n.MPIDR)
	}
	assert.Equal(t, []arch.MPIDR{0x1, 0x100}, got)

	pred, err := FindMPIDRPredicate("0x10.")
	require.NoError(t, err)
	var out bytes.Buffer
	find = &Find{Predicate: FindAndPredicate(pred, FindLevelPredicate(0)), W: &out}
	require.NoError(t, find.Run(tree))
	var infos []NodeInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, "0x101", infos[1].MPIDR)
	assert.False(t, infos[1].Present)
	assert.Equal(t, "ON", infos[2].State)
	require.NotNil(t, infos[2].Core)
	assert.Equal(t, 3, *infos[2].Core)
}

func TestJSON(t *testing.T) {
	e := testEnv(t)
	var out bytes.Buffer
	require.NoError(t, (&JSON{W: &out}).Run(e.PSCI.Tree()))

	var roots []NodeInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &roots))
	require.Len(t, roots, 2)
	assert.Equal(t, "0x100", roots[1].MPIDR)
	assert.Equal(t, uint(1), roots[1].Level)
	assert.Equal(t, "ON", roots[1].State)
	assert.Len(t, roots[1].Children, 3)

	out.Reset()
	require.NoError(t, (&JSON{W: &out}).Run(e.PSCI.Tree().Node(0x1, 0)))
	var node NodeInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &node))
	assert.Equal(t, "OFF", node.State)
}

func TestTable(t *testing.T) {
	e := testEnv(t)
	var out bytes.Buffer
	v, err := ParseCLI([]string{"table"})
	require.NoError(t, err)
	v[0].(*Table).W = &out
	require.NoError(t, ExecuteCLI(e, v))

	s := out.String()
	assert.Contains(t, strings.ToLower(s), "test")
	assert.Contains(t, strings.ToLower(s), "stack size")
	assert.Contains(t, s, "2.0 KiB")
	assert.Contains(t, s, "0x4021800")
	assert.Contains(t, s, "absent")
	assert.Contains(t, s, "  cpu2")
}

func TestContext(t *testing.T) {
	e := testEnv(t)
	var out bytes.Buffer
	v := &Context{W: &out, State: cm.NonSecure}
	require.NoError(t, ExecuteCLI(e, []psci.Visitor{v}))

	s := out.String()
	assert.Contains(t, strings.ToLower(s), "core 0x102 non-secure context")
	assert.Contains(t, s, "0x00000000001234")
	assert.Contains(t, s, "Exception SP")
	assert.Contains(t, s, "0x00000088000000")

	out.Reset()
	v = &Context{W: &out, State: cm.Secure}
	require.NoError(t, ExecuteCLI(e, []psci.Visitor{v}))
	assert.Contains(t, out.String(), "none registered")

	assert.Error(t, (&Context{}).Run(e.PSCI.Tree()))
}

func TestRegisterLabel(t *testing.T) {
	assert.Equal(t, "Exception SP", RegisterLabel("ExceptionSP"))
	assert.Equal(t, "Runtime SP", RegisterLabel("RuntimeSP"))
	assert.Equal(t, "SCR", RegisterLabel("SCR"))
}
