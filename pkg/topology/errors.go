// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"fmt"

	"github.com/linuxboot/secmon/pkg/arch"
)

// ErrLevelTooHigh means the description asks for more affinity levels
// than MPIDR can encode.
type ErrLevelTooHigh struct {
	Level uint
}

func (err *ErrLevelTooHigh) Error() string {
	return fmt.Sprintf("max affinity level %d exceeds %d", err.Level, arch.MaxAffinityLevel)
}

// ErrTooManyInstances means an affinity field would overflow.
type ErrTooManyInstances struct {
	Level uint
	Count int
}

func (err *ErrTooManyInstances) Error() string {
	return fmt.Sprintf("%d instances at affinity level %d, at most %d fit", err.Count, err.Level, maxInstances)
}

// ErrCoreHasChildren means a level 0 node was given children.
type ErrCoreHasChildren struct {
	Path string
}

func (err *ErrCoreHasChildren) Error() string {
	return fmt.Sprintf("%s: a core cannot have children", err.Path)
}

// ErrUnknownCore means an MPIDR does not name a present core.
type ErrUnknownCore struct {
	MPIDR arch.MPIDR
}

func (err *ErrUnknownCore) Error() string {
	return fmt.Sprintf("no present core with MPIDR %v", err.MPIDR)
}
