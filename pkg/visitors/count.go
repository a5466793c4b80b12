// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/linuxboot/secmon/pkg/psci"
)

// Count counts the present instances of each level in each state.
type Count struct {
	// Optionally write result as JSON.
	W io.Writer `json:"-"`

	// Output, indexed by level.
	Levels []map[string]int
	Absent int
}

// Run wraps Visit and performs some setup and teardown tasks.
func (v *Count) Run(a psci.Affinity) error {
	v.Levels = nil
	v.Absent = 0

	if err := a.Apply(v); err != nil {
		return err
	}

	if v.W != nil {
		b, err := json.MarshalIndent(v, "", "\t")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(v.W, string(b))
		return err
	}
	return nil
}

// Visit applies the Count visitor to the tree and its nodes.
func (v *Count) Visit(a psci.Affinity) error {
	n, ok := a.(*psci.Node)
	if !ok {
		return a.ApplyChildren(v)
	}
	if !n.Present {
		v.Absent++
		return nil
	}
	for uint(len(v.Levels)) <= n.Level {
		v.Levels = append(v.Levels, map[string]int{})
	}
	v.Levels[n.Level][n.State().String()]++
	return n.ApplyChildren(v)
}

func init() {
	RegisterCLI("count", "count the instances of each level in each state", 0, func(args []string) (psci.Visitor, error) {
		return &Count{
			W: os.Stdout,
		}, nil
	})
}
