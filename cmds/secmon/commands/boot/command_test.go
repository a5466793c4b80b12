// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const config = `
topology:
  platform: fvp
  max_affinity_level: 1
  warm_entry: 0x04001000
  exception_stack: {base: 0x04020000, size: 0x1000}
  nodes:
    - cores: 4
image:
  root: %s
  path: bl33.bin
  base: 0x88000000
`

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bl33.bin"), make([]byte, 3<<10), 0o644))
	cfgPath := filepath.Join(dir, "fvp.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(config, dir)), 0o644))

	var out bytes.Buffer
	cmd := &Command{Config: cfgPath, Primary: "0x2", out: &out}
	require.NoError(t, cmd.Execute(nil))
	assert.Equal(t, "platform: fvp (4 cores)\n"+
		"image:    bl33.bin (3.0 KiB)\n"+
		"entry:    core 0x2 pc 0x88000000 spsr 0x3c9 scr 0x531\n"+
		"state:    aarch64\n", out.String())

	noImage := filepath.Join(dir, "noimage.yaml")
	cfg := strings.Replace(fmt.Sprintf(config, dir), "  path: bl33.bin\n", "", 1)
	require.NoError(t, os.WriteFile(noImage, []byte(cfg), 0o644))
	out.Reset()
	require.NoError(t, (&Command{Config: noImage, Primary: "0x0", out: &out}).Execute(nil))
	assert.Contains(t, out.String(), "image:    none\n")
	assert.Contains(t, out.String(), "pc 0x88000000")

	assert.Error(t, cmd.Execute([]string{"extra"}))
	cmd.Config = filepath.Join(dir, "missing.yaml")
	assert.Error(t, cmd.Execute(nil))
}
