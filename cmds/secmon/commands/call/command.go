// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package call

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/linuxboot/secmon/cmds/secmon/commands"
	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/monitor"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/visitors"
)

var _ commands.Command = (*Command)(nil)

const defaultEntry = 0x88000000

type Command struct {
	commands.TopologyOptions

	Show bool `long:"show" description:"print the affinity tree after the last call"`

	out io.Writer
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "issues PSCI calls on a simulated system"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	var b strings.Builder
	b.WriteString("Calls are issued in order, from the primary core until an @MPIDR token\n")
	b.WriteString("switches the calling core. \"wake MPIDR\" wakes a suspended core.\n\nCalls:\n")
	for _, f := range psci.Functions() {
		fmt.Fprintf(&b, "  %-22s: %d arguments\n", f.Name, f.Args)
	}
	return b.String()
}

// Step is one call issued by a core.
type Step struct {
	Caller arch.MPIDR
	Name   string
	ID     uint32
	Args   []uint64
}

const wake = "wake"

// ParseSteps splits args into calls.
func ParseSteps(args []string, primary arch.MPIDR) ([]Step, error) {
	var steps []Step
	caller := primary
	for len(args) > 0 {
		tok := args[0]
		args = args[1:]
		if strings.HasPrefix(tok, "@") {
			mpidr, err := commands.ParseMPIDR(tok[1:])
			if err != nil {
				return nil, err
			}
			caller = mpidr
			continue
		}

		st := Step{Caller: caller, Name: tok}
		n := 1
		if tok != wake {
			f, ok := psci.FunctionByName(tok)
			if !ok {
				return nil, fmt.Errorf("unknown call %q", tok)
			}
			st.ID, n = f.ID, f.Args
		}
		if len(args) < n {
			return nil, fmt.Errorf("%s takes %d arguments, got %d", tok, n, len(args))
		}
		for _, a := range args[:n] {
			v, err := strconv.ParseUint(a, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid argument %q: %w", tok, a, err)
			}
			st.Args = append(st.Args, v)
		}
		args = args[n:]
		steps = append(steps, st)
	}
	return steps, nil
}

// Result renders the value a call left in x0.
func Result(st Step, rc uint64) string {
	switch st.ID {
	case psci.FnVersion:
		return fmt.Sprintf("%d.%d", rc>>16, rc&0xffff)
	case psci.FnAffinityInfo32, psci.FnAffinityInfo64:
		if int32(rc) >= 0 {
			return psci.State(rc).String()
		}
	case psci.FnMigrateInfoType:
		return strconv.FormatUint(rc, 10)
	}
	return psci.Code(int32(rc)).String()
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the calls to issue.
func (cmd *Command) Execute(args []string) error {
	if len(args) == 0 {
		return commands.Argsf("no calls given")
	}
	if cmd.out == nil {
		cmd.out = os.Stdout
	}
	s, err := cmd.Boot(monitor.Image{Base: defaultEntry})
	if err != nil {
		return err
	}
	steps, err := ParseSteps(args, s.Primary)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}
	for _, st := range steps {
		if s.Machine.Core(st.Caller) == nil {
			return commands.Argsf("no core %v", st.Caller)
		}
		if err := cmd.run(s, st); err != nil {
			return err
		}
	}
	for _, e := range s.Machine.Entries() {
		fmt.Fprintf(cmd.out, "entry %v: pc %#x spsr %#x scr %#x x0 %#x\n", e.MPIDR, e.PC, e.SPSR, e.SCR, e.X0)
	}
	if cmd.Show {
		return visitors.ExecuteCLI(s.Env(), []psci.Visitor{&visitors.Table{W: cmd.out}})
	}
	return nil
}

func (cmd *Command) run(s *commands.System, st Step) error {
	args := make([]string, len(st.Args))
	for i, a := range st.Args {
		args[i] = fmt.Sprintf("%#x", a)
	}
	desc := fmt.Sprintf("%v: %s(%s)", st.Caller, st.Name, strings.Join(args, ", "))

	if st.Name == wake {
		s.Machine.Wake(arch.MPIDR(st.Args[0]))
		fmt.Fprintln(cmd.out, desc)
		return s.Machine.Wait()
	}

	var (
		x        [4]uint64
		rc       uint64
		returned bool
	)
	copy(x[:], st.Args)
	s.Machine.Run(st.Caller, func(c *sim.Core) {
		rc = s.Monitor.PSCI().HandleSMC(c, st.ID, x[0], x[1], x[2], x[3])
		returned = true
	})
	if err := s.Machine.Wait(); err != nil {
		return err
	}
	if !returned {
		fmt.Fprintf(cmd.out, "%s: powered down\n", desc)
		return nil
	}
	fmt.Fprintf(cmd.out, "%s = %#x %s\n", desc, rc, Result(st, rc))
	return nil
}
