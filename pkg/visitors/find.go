// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visitors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/linuxboot/secmon/pkg/psci"
)

// FindPredicate is used to filter matches in the Find visitor.
type FindPredicate = func(n *psci.Node) bool

// Find affinity instances matching a predicate.
type Find struct {
	// Input
	// Only when this functions returns true will the node appear in the
	// `Matches` slice.
	Predicate FindPredicate

	// Output
	Matches []*psci.Node

	// JSON is written to this writer.
	W io.Writer
}

// Run wraps Visit and performs some setup and teardown tasks.
func (v *Find) Run(a psci.Affinity) error {
	v.Matches = nil
	if err := a.Apply(v); err != nil {
		return err
	}
	if v.W != nil {
		matches := make([]NodeInfo, 0, len(v.Matches))
		for _, n := range v.Matches {
			info := Snapshot(n)
			info.Children = nil
			matches = append(matches, info)
		}
		b, err := json.MarshalIndent(matches, "", "\t")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(v.W, string(b))
		return err
	}
	return nil
}

// Visit applies the Find visitor to the tree and its nodes.
func (v *Find) Visit(a psci.Affinity) error {
	if n, ok := a.(*psci.Node); ok && v.Predicate(n) {
		v.Matches = append(v.Matches, n)
	}
	return a.ApplyChildren(v)
}

// FindStatePredicate matches present instances in state s.
func FindStatePredicate(s psci.State) FindPredicate {
	return func(n *psci.Node) bool {
		return n.Present && n.State() == s
	}
}

// FindLevelPredicate matches the instances of a level.
func FindLevelPredicate(level uint) FindPredicate {
	return func(n *psci.Node) bool {
		return n.Level == level
	}
}

// FindMPIDRPredicate matches instances whose MPIDR, printed in hex,
// matches the regular expression r.
func FindMPIDRPredicate(r string) (FindPredicate, error) {
	re, err := regexp.Compile("^(?i)(" + r + ")$")
	if err != nil {
		return nil, err
	}
	return func(n *psci.Node) bool {
		return re.MatchString(n.MPIDR.String())
	}, nil
}

// FindAndPredicate is a generic predicate which takes the logical AND of two existing predicates.
func FindAndPredicate(predicate1 FindPredicate, predicate2 FindPredicate) FindPredicate {
	return func(n *psci.Node) bool {
		return predicate1(n) && predicate2(n)
	}
}

// ParseState parses a state name as printed by psci.State.
func ParseState(s string) (psci.State, error) {
	for _, st := range []psci.State{psci.StateOn, psci.StateOff, psci.StateOnPending, psci.StateSuspend} {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", s)
}

func init() {
	RegisterCLI("find", "find instances by MPIDR", 1, func(args []string) (psci.Visitor, error) {
		pred, err := FindMPIDRPredicate(args[0])
		if err != nil {
			return nil, err
		}
		return &Find{
			Predicate: pred,
			W:         os.Stdout,
		}, nil
	})
	RegisterCLI("find_state", "find instances in a state (ON, OFF, ON_PENDING, SUSPEND)", 1, func(args []string) (psci.Visitor, error) {
		s, err := ParseState(args[0])
		if err != nil {
			return nil, err
		}
		return &Find{
			Predicate: FindStatePredicate(s),
			W:         os.Stdout,
		}, nil
	})
	RegisterCLI("find_level", "find the instances of an affinity level", 1, func(args []string) (psci.Visitor, error) {
		level, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return nil, err
		}
		return &Find{
			Predicate: FindLevelPredicate(uint(level)),
			W:         os.Stdout,
		}, nil
	})
}
