// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package halt is the fatal tier of secmon error handling.
//
// A halt means the monitor can no longer vouch for which world owns which
// register state, so it must stop. Halts are raised as panics carrying an
// *Error and are never mapped onto a protocol return code.
package halt

import (
	"errors"
	"fmt"

	"github.com/linuxboot/secmon/pkg/log"
)

// Error is the panic value of a halt.
type Error struct {
	Reason string
}

func (err *Error) Error() string {
	return "monitor halted: " + err.Reason
}

// Halt logs the reason and stops the calling core.
func Halt(format string, args ...interface{}) {
	err := &Error{Reason: fmt.Sprintf(format, args...)}
	log.Errorf("%v", err)
	panic(err)
}

// Unreachable halts on a path that must never be taken, such as a call
// that does not return having returned.
func Unreachable(what string) {
	Halt("unreachable: %s", what)
}

// Assert halts with the given reason when cond is false.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		Halt(format, args...)
	}
}

// Catch runs fn and converts a halt into a returned *Error. Any other
// panic propagates unchanged.
//
// Catch is for tests and for the top level of host tools; firmware paths
// never recover from a halt.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var h *Error
		if e, ok := r.(error); ok && errors.As(e, &h) {
			err = h
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
