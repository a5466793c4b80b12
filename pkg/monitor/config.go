// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/linuxboot/secmon/pkg/topology"
)

// Image describes the next stage the monitor hands the primary core to.
type Image struct {
	// Root is the host directory served over semihosting.
	Root string `yaml:"root"`
	// Path of the image on the semihosting device. Without one nothing is
	// loaded and the primary core is only prepared to enter Base.
	Path string `yaml:"path"`
	// Base is where the image is loaded and entered.
	Base uint64 `yaml:"base"`
	// Limit is the size of the load region. Zero means unbounded.
	Limit int64 `yaml:"limit"`
	// AArch32 enters the image in AArch32 state.
	AArch32 bool `yaml:"aarch32"`
}

// Config is a cold boot configuration.
type Config struct {
	Topology topology.Description `yaml:"topology"`
	Image    Image                `yaml:"image"`
}

// LoadConfig decodes a YAML configuration. Unknown fields are errors.
func LoadConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}
	return c, nil
}

// LoadConfigFile reads a configuration from path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	c, err := LoadConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
