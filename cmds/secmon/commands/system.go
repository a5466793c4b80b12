// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/monitor"
	"github.com/linuxboot/secmon/pkg/sim"
	"github.com/linuxboot/secmon/pkg/topology"
	"github.com/linuxboot/secmon/pkg/visitors"
)

// TopologyOptions selects the platform topology of a simulated machine.
type TopologyOptions struct {
	Topology string `short:"t" long:"topology" description:"path to a YAML platform topology; a uniform one is used if unset"`
	Clusters int    `long:"clusters" default:"2" description:"clusters of the uniform topology"`
	Cores    int    `long:"cores" default:"4" description:"cores per cluster of the uniform topology"`
	Primary  string `long:"primary" default:"0x0" description:"MPIDR of the cold booting core"`
	NoEL2    bool   `long:"no-el2" description:"simulate cores without EL2"`
}

// Description returns the selected topology.
func (o TopologyOptions) Description() (topology.Description, error) {
	if o.Topology == "" {
		if o.Clusters <= 0 || o.Cores <= 0 {
			return topology.Description{}, Argsf("need at least one cluster of one core, got %dx%d", o.Clusters, o.Cores)
		}
		return topology.Uniform(o.Clusters, o.Cores), nil
	}
	s, err := topology.LoadFile(o.Topology)
	if err != nil {
		return topology.Description{}, err
	}
	return s.Description(), nil
}

// System is a monitor booted on a simulated machine.
type System struct {
	Machine *sim.Machine
	Monitor *monitor.Monitor
	Primary arch.MPIDR
}

// Env returns the visitor environment of the system.
func (s *System) Env() visitors.Env {
	return visitors.Env{PSCI: s.Monitor.PSCI(), Topology: s.Monitor.Topology()}
}

// Boot cold boots a monitor on a simulated machine.
func (o TopologyOptions) Boot(image monitor.Image) (*System, error) {
	d, err := o.Description()
	if err != nil {
		return nil, err
	}
	primary, err := ParseMPIDR(o.Primary)
	if err != nil {
		return nil, ErrArgs{Err: err}
	}
	var opts []sim.Option
	if o.NoEL2 {
		opts = append(opts, sim.WithoutEL2())
	}
	s := &System{Primary: primary}
	newPlatform := func(topo *topology.Static) (monitor.Platform, error) {
		s.Machine = sim.New(topo, opts...)
		return s.Machine, nil
	}
	s.Monitor, err = monitor.Boot(monitor.Config{Topology: d, Image: image}, newPlatform, primary)
	if err != nil {
		return nil, err
	}
	s.Machine.Attach(s.Monitor.PSCI())
	return s, nil
}

// ParseMPIDR parses an MPIDR in any base strconv accepts.
func ParseMPIDR(s string) (arch.MPIDR, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid MPIDR %q: %w", s, err)
	}
	return arch.MPIDR(v), nil
}
