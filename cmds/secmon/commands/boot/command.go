// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/secmon/cmds/secmon/commands"
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/monitor"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	Config  string `short:"c" long:"config" description:"path to the boot configuration" required:"true"`
	Primary string `long:"primary" default:"0x0" description:"MPIDR of the cold booting core"`
	NoEL2   bool   `long:"no-el2" description:"simulate cores without EL2"`

	out io.Writer
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "cold boots a simulated system from a configuration"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Loads the topology and next stage image named by the configuration, cold boots\n" +
		"on the primary core and prints the exception return into the non-secure world."
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.Argsf("there are extra arguments")
	}
	if cmd.out == nil {
		cmd.out = os.Stdout
	}
	cfg, err := monitor.LoadConfigFile(cmd.Config)
	if err != nil {
		return err
	}
	primary, err := commands.ParseMPIDR(cmd.Primary)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}
	var opts []sim.Option
	if cmd.NoEL2 {
		opts = append(opts, sim.WithoutEL2())
	}

	var m *sim.Machine
	mon, err := monitor.Boot(cfg, func(topo *topology.Static) (monitor.Platform, error) {
		m = sim.New(topo, opts...)
		return m, nil
	}, primary)
	if err != nil {
		return err
	}

	var e sim.Entry
	if err := halt.Catch(func() { e = m.Core(primary).ERET() }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "platform: %s (%d cores)\n", mon.Topology().Platform(), mon.Topology().CoreCount())
	if cfg.Image.Path == "" {
		fmt.Fprintln(cmd.out, "image:    none")
	} else {
		fmt.Fprintf(cmd.out, "image:    %s (%s)\n", cfg.Image.Path, humanize.IBytes(uint64(len(mon.Image()))))
	}
	fmt.Fprintf(cmd.out, "entry:    core %v pc %#x spsr %#x scr %#x\n", e.MPIDR, e.PC, e.SPSR, e.SCR)
	if e.SCR&arch.SCRRW == 0 {
		fmt.Fprintln(cmd.out, "state:    aarch32")
	} else {
		fmt.Fprintln(cmd.out, "state:    aarch64")
	}
	return nil
}
