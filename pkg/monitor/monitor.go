// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor cold boots the secure monitor: it brings up the power
// state machine and context registry for a platform and prepares the
// primary core to enter the next stage in the non-secure world.
package monitor

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/linuxboot/secmon/pkg/arch"
	"github.com/linuxboot/secmon/pkg/bootio"
	"github.com/linuxboot/secmon/pkg/cm"
	"github.com/linuxboot/secmon/pkg/log"
	"github.com/linuxboot/secmon/pkg/psci"
	"github.com/linuxboot/secmon/pkg/topology"
)

// Platform is the machine a monitor boots on.
type Platform interface {
	psci.Platform
	// CPU returns the core with the given MPIDR, or nil.
	CPU(mpidr arch.MPIDR) arch.CPU
}

// NewPlatform builds the platform for a topology.
type NewPlatform func(topo *topology.Static) (Platform, error)

// Monitor is a booted monitor.
type Monitor struct {
	topo  *topology.Static
	cm    *cm.Manager
	psci  *psci.Service
	image []byte
	entry uint64
}

// Option configures a boot.
type Option func(*options)

type options struct {
	spd      psci.SecurePayload
	psciOpts []psci.Option
}

// WithSecurePayload registers the secure payload dispatcher hooks.
func WithSecurePayload(spd psci.SecurePayload) Option {
	return func(o *options) {
		o.spd = spd
	}
}

// WithPSCIOptions passes options to the PSCI service.
func WithPSCIOptions(opts ...psci.Option) Option {
	return func(o *options) {
		o.psciOpts = append(o.psciOpts, opts...)
	}
}

// Boot cold boots on primary. On return the primary core's SP_EL3 points
// at its non-secure context, programmed to enter the image.
func Boot(cfg Config, newPlatform NewPlatform, primary arch.MPIDR, opts ...Option) (*Monitor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	topo, err := topology.New(cfg.Topology)
	if err != nil {
		return nil, err
	}
	if _, err := topo.CorePos(primary); err != nil {
		return nil, fmt.Errorf("primary core: %w", err)
	}
	plat, err := newPlatform(topo)
	if err != nil {
		return nil, fmt.Errorf("unable to set up platform %q: %w", topo.Platform(), err)
	}
	cpu := plat.CPU(primary)
	if cpu == nil {
		return nil, fmt.Errorf("platform %q has no core %v", topo.Platform(), primary)
	}

	image, err := loadImage(cfg.Image)
	if err != nil {
		return nil, err
	}

	mgr := cm.NewManager(cm.NewRegistry(topo), topo)
	svc := psci.New(topo, plat, mgr, o.psciOpts...)
	if o.spd != nil {
		svc.RegisterSecurePayload(o.spd)
	}
	svc.Start(primary)

	spsr, scr := entryState(cpu, cfg.Image.AArch32)
	mgr.InitExceptionStack(primary, cm.NonSecure)
	mgr.SetEL3EretContext(primary, cm.NonSecure, cfg.Image.Base, spsr, scr)
	mgr.SetNextEretContext(cpu, cm.NonSecure)

	log.Infof("monitor: %s: entering %s image %q at %#x on core %v",
		topo.Platform(), humanize.IBytes(uint64(len(image))), cfg.Image.Path, cfg.Image.Base, primary)
	return &Monitor{
		topo:  topo,
		cm:    mgr,
		psci:  svc,
		image: image,
		entry: cfg.Image.Base,
	}, nil
}

func loadImage(img Image) ([]byte, error) {
	if img.Path == "" {
		return nil, nil
	}
	root := img.Root
	if root == "" {
		root = "."
	}
	s := bootio.NewStorage()
	dev, err := s.Register(bootio.NewSemihosting(bootio.NewHostSemihost(root)), nil)
	if err != nil {
		return nil, err
	}
	defer s.Unregister(dev)
	data, err := bootio.LoadImage(s, dev, bootio.FileSpec{Path: img.Path, Mode: bootio.ModeRead}, img.Limit)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", img.Path, err)
	}
	return data, nil
}

// entryState returns the SPSR and SCR of the first entry into the
// non-secure world: the highest implemented level below the monitor, with
// every exception masked.
func entryState(cpu arch.CPU, aarch32 bool) (spsr, scr uint32) {
	el2 := arch.EL2Implemented(cpu.ReadIDAA64PFR0())
	scr = arch.SCRNonSecure | arch.SCRRES1
	if el2 {
		scr |= arch.SCRHCE
	}
	if aarch32 {
		mode := uint32(arch.Mode32SVC)
		if el2 {
			mode = arch.Mode32HYP
		}
		return arch.SPSR32(mode, arch.ISAArm, arch.EndianLittle, arch.AIFAll), scr
	}
	scr |= arch.SCRRW
	el := uint32(arch.ModeEL1)
	if el2 {
		el = arch.ModeEL2
	}
	return arch.SPSR64(el, arch.ModeSPELx, arch.DAIFAll), scr
}

// PSCI returns the power state coordination service. Secondary cores
// enter the monitor through its WarmBoot method.
func (m *Monitor) PSCI() *psci.Service {
	return m.psci
}

// Contexts returns the context manager.
func (m *Monitor) Contexts() *cm.Manager {
	return m.cm
}

// Topology returns the platform topology.
func (m *Monitor) Topology() *topology.Static {
	return m.topo
}

// Image returns the loaded next stage.
func (m *Monitor) Image() []byte {
	return m.image
}

// Entry is the non-secure entry point of the primary core.
func (m *Monitor) Entry() uint64 {
	return m.entry
}
