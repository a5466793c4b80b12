// Copyright 2017-2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// secmon runs the secure monitor's power state machine on a simulated
// machine.
//
// Synopsis:
//
//	secmon show [options] [VISITOR [ARGS]]...
//	secmon call [options] [@CORE] CALL [ARGS]... [[@CORE] CALL [ARGS]...]...
//	secmon boot -c CONFIG [options]
//
// An example:
//
//	secmon show -t juno.yaml table
//	secmon call cpu_on 0x1 0x80000000 0x1234 @0x1 affinity_info 0x0 0 @0x1 cpu_off
//	secmon boot -c fvp.yaml
//
// Description:
//
//	show: Print the affinity tree of a freshly booted system
//	call: Issue PSCI calls from the non-secure world
//	boot: Cold boot from a configuration and print the first entry
package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/secmon/cmds/secmon/commands"
	"github.com/linuxboot/secmon/cmds/secmon/commands/boot"
	"github.com/linuxboot/secmon/cmds/secmon/commands/call"
	"github.com/linuxboot/secmon/cmds/secmon/commands/show"
	"github.com/linuxboot/secmon/pkg/log"
)

var (
	knownCommands = map[string]commands.Command{
		"show": &show.Command{},
		"call": &call.Command{},
		"boot": &boot.Command{},
	}
)

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		var argsErr commands.ErrArgs
		if errors.As(err, &argsErr) {
			log.Errorf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}
