// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
)

// ErrArgs reports a bad command line rather than a failure of the
// simulated system. secmon exits with status 2 for it.
type ErrArgs struct {
	Err error
}

// Argsf returns an ErrArgs with a formatted cause.
func Argsf(format string, args ...any) error {
	return ErrArgs{Err: fmt.Errorf(format, args...)}
}

func (err ErrArgs) Error() string {
	return fmt.Sprintf("invalid arguments: %v", err.Err)
}

func (err ErrArgs) Unwrap() error {
	return err.Err
}
