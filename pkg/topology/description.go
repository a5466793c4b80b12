// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology describes the static affinity hierarchy of a platform
// and derives linear core positions from it.
package topology

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/linuxboot/secmon/pkg/arch"
)

// Node is one affinity instance in a Description. A node at level 1 may use
// Cores as a shorthand for that many present cores.
type Node struct {
	Absent   bool   `yaml:"absent,omitempty"`
	Cores    int    `yaml:"cores,omitempty"`
	Children []Node `yaml:"children,omitempty"`
}

// children expands the Cores shorthand.
func (n Node) children() []Node {
	if len(n.Children) > 0 {
		return n.Children
	}
	return make([]Node, n.Cores)
}

// Stack is a region carved into one exception stack per core.
type Stack struct {
	Base uint64 `yaml:"base"`
	Size uint64 `yaml:"size"`
}

// Description is the platform topology as written in a YAML file.
type Description struct {
	Platform         string `yaml:"platform"`
	MaxAffinityLevel uint   `yaml:"max_affinity_level"`
	ExceptionStack   Stack  `yaml:"exception_stack"`
	WarmEntry        uint64 `yaml:"warm_entry"`

	// Nodes are the affinity instances at MaxAffinityLevel.
	Nodes []Node `yaml:"nodes"`
}

// Validate reports every structural problem of the description.
func (d *Description) Validate() error {
	var result *multierror.Error
	if d.MaxAffinityLevel > arch.MaxAffinityLevel {
		result = multierror.Append(result, &ErrLevelTooHigh{Level: d.MaxAffinityLevel})
	}
	if len(d.Nodes) == 0 {
		result = multierror.Append(result, fmt.Errorf("no affinity instances at level %d", d.MaxAffinityLevel))
	}
	if len(d.Nodes) > maxInstances {
		result = multierror.Append(result, &ErrTooManyInstances{Level: d.MaxAffinityLevel, Count: len(d.Nodes)})
	}
	if d.ExceptionStack.Size == 0 {
		result = multierror.Append(result, fmt.Errorf("exception stack size is zero"))
	}
	cores := 0
	for i, n := range d.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		result = multierror.Append(result, validateNode(n, d.MaxAffinityLevel, path, &cores))
	}
	if cores == 0 {
		result = multierror.Append(result, fmt.Errorf("no present cores"))
	}
	return result.ErrorOrNil()
}

const maxInstances = 1 << 8

func validateNode(n Node, level uint, path string, cores *int) error {
	var result *multierror.Error
	if level == 0 {
		if len(n.Children) > 0 || n.Cores > 0 {
			result = multierror.Append(result, &ErrCoreHasChildren{Path: path})
		}
		if !n.Absent {
			*cores++
		}
		return result.ErrorOrNil()
	}
	if n.Cores > 0 && level != 1 {
		result = multierror.Append(result, fmt.Errorf("%s: 'cores' shorthand is only valid at level 1, got level %d", path, level))
	}
	if n.Cores > 0 && len(n.Children) > 0 {
		result = multierror.Append(result, fmt.Errorf("%s: both 'cores' and 'children' given", path))
	}
	children := n.children()
	if len(children) > maxInstances {
		result = multierror.Append(result, &ErrTooManyInstances{Level: level - 1, Count: len(children)})
	}
	if n.Absent {
		return result.ErrorOrNil()
	}
	for i, c := range children {
		result = multierror.Append(result, validateNode(c, level-1, fmt.Sprintf("%s.children[%d]", path, i), cores))
	}
	return result.ErrorOrNil()
}

// Load decodes and validates a YAML description.
func Load(r io.Reader) (*Static, error) {
	var d Description
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("unable to decode topology: %w", err)
	}
	return New(d)
}

// LoadFile is Load on the named file.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Uniform describes a system of identical clusters at level 1.
func Uniform(clusters, cores int) Description {
	d := Description{
		Platform:         fmt.Sprintf("uniform-%dx%d", clusters, cores),
		MaxAffinityLevel: 1,
		ExceptionStack:   Stack{Base: 0x04020000, Size: 0x1000},
		WarmEntry:        0x04001000,
	}
	for i := 0; i < clusters; i++ {
		d.Nodes = append(d.Nodes, Node{Cores: cores})
	}
	return d
}
