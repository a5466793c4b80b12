// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"github.com/jessevdk/go-flags"
)

// Command is a secmon subcommand. go-flags fills in its options and then
// calls Execute with the positional arguments.
type Command interface {
	flags.Commander

	// ShortDescription is the line shown in the list of subcommands.
	ShortDescription() string

	// LongDescription is shown by "secmon <command> --help".
	LongDescription() string
}
