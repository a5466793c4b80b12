// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/secmon/pkg/arch"
)

func TestArgsf(t *testing.T) {
	err := fmt.Errorf("show: %w", Argsf("no core %v", arch.MPIDR(0x103)))
	var argsErr ErrArgs
	require.True(t, errors.As(err, &argsErr))
	assert.Equal(t, "invalid arguments: no core 0x103", argsErr.Error())
}

func TestParseMPIDR(t *testing.T) {
	m, err := ParseMPIDR("0x101")
	require.NoError(t, err)
	assert.Equal(t, arch.MPIDR(0x101), m)

	_, err = ParseMPIDR("cpu1")
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}
