// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/camelcase"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/psci"
)

// Context dumps the saved context of one world for every core it visits.
type Context struct {
	W        io.Writer
	State    cm.SecurityState
	Contexts *cm.Manager
	// All includes registers that are zero.
	All bool
}

func (v *Context) setEnv(e Env) {
	if v.Contexts == nil {
		v.Contexts = contextsOf(e)
	}
}

// Run wraps Visit and performs some setup and teardown tasks.
func (v *Context) Run(a psci.Affinity) error {
	if v.Contexts == nil {
		return errors.New("context: no context manager")
	}
	if v.W == nil {
		v.W = os.Stdout
	}
	return a.Apply(v)
}

// Visit applies the Context visitor to the tree and its nodes.
func (v *Context) Visit(a psci.Affinity) error {
	n, ok := a.(*psci.Node)
	if !ok {
		return a.ApplyChildren(v)
	}
	if !n.Present {
		return nil
	}
	if n.Level > 0 {
		return n.ApplyChildren(v)
	}

	t := table.NewWriter()
	t.SetOutputMirror(v.W)
	t.SetTitle("core %v %v context", n.MPIDR, v.State)
	ctx := v.Contexts.Get(n.MPIDR, v.State)
	if ctx == nil {
		t.AppendRow(table.Row{"none registered"})
		t.Render()
		return nil
	}
	t.AppendHeader(table.Row{"Bank", "Register", "Value"})
	for i := 0; i < 4; i++ {
		v.appendRow(t, "GP", fmt.Sprintf("X%d", i), ctx.GPRegs.X[i])
	}
	v.appendBank(t, "EL3", ctx.EL3)
	v.appendBank(t, "EL3 Sys", ctx.EL3Sys)
	v.appendBank(t, "EL1 Sys", ctx.EL1)
	t.Render()
	return nil
}

func (v *Context) appendBank(t table.Writer, bank string, regs any) {
	rv := reflect.ValueOf(regs)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		v.appendRow(t, bank, RegisterLabel(rt.Field(i).Name), rv.Field(i).Uint())
	}
}

func (v *Context) appendRow(t table.Writer, bank, name string, value uint64) {
	if value == 0 && !v.All {
		return
	}
	t.AppendRow(table.Row{bank, name, fmt.Sprintf("%#016x", value)})
}

// RegisterLabel turns a register bank field name into a label.
func RegisterLabel(field string) string {
	return strings.Join(camelcase.Split(field), " ")
}

func init() {
	RegisterCLI("context", "dump the saved context of a world (secure, non-secure) for each core", 1, func(args []string) (psci.Visitor, error) {
		switch strings.ToLower(args[0]) {
		case "secure", "s":
			return &Context{State: cm.Secure}, nil
		case "non-secure", "nonsecure", "ns":
			return &Context{State: cm.NonSecure}, nil
		}
		return nil, fmt.Errorf("unknown security state %q", args[0])
	})
}
