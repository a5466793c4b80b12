// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package show

import (
	"fmt"

	"github.com/linuxboot/secmon/cmds/secmon/commands"
	"github.com/linuxboot/secmon/pkg/halt"
	"github.com/linuxboot/secmon/pkg/monitor"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/visitors"
)

var _ commands.Command = (*Command)(nil)

// DefaultEntry is where simulated cores enter the non-secure world.
const DefaultEntry = 0x88000000

type Command struct {
	commands.TopologyOptions

	On []string `long:"on" description:"MPIDR of a core to power on before printing (can be repeated)"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the affinity tree"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return "Boots a simulated system and applies visitors to its affinity tree.\n\nVisitors:\n" + visitors.ListCLI()
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the visitors to apply, "table" if there are none.
func (cmd *Command) Execute(args []string) error {
	if len(args) == 0 {
		args = []string{"table"}
	}
	v, err := visitors.ParseCLI(args)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}

	s, err := cmd.Boot(monitor.Image{Base: DefaultEntry})
	if err != nil {
		return err
	}
	for _, on := range cmd.On {
		target, err := commands.ParseMPIDR(on)
		if err != nil {
			return commands.ErrArgs{Err: err}
		}
		var rc psci.Code
		if err := halt.Catch(func() {
			rc = s.Monitor.PSCI().CPUOn(s.Machine.Core(s.Primary), target, DefaultEntry, 0)
		}); err != nil {
			return err
		}
		if rc != psci.Success {
			return fmt.Errorf("unable to power on %v: %v", target, rc)
		}
	}
	if err := s.Machine.Wait(); err != nil {
		return err
	}
	return visitors.ExecuteCLI(s.Env(), v)
}
