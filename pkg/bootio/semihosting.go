// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bootio

import (
	"fmt"
	"io"
)

// Mode is a semihosting file open mode.
type Mode int

// Open modes.
const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "rb"
	case ModeWrite:
		return "wb"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// FileSpec names a file on the semihosting device.
type FileSpec struct {
	Path string
	Mode Mode
}

// Semihost is the set of semihosting file operations of the debugger or
// model the monitor runs under. File descriptors are positive.
type Semihost interface {
	FileOpen(path string, mode Mode) (int, error)
	// FileSeek moves to an absolute offset.
	FileSeek(fd int, offset int64) error
	FileLength(fd int) (int64, error)
	FileRead(fd int, p []byte) (int, error)
	FileWrite(fd int, p []byte) (int, error)
	FileClose(fd int) error
}

type shConnector struct {
	dev *shDevice
}

// NewSemihosting returns the connector of the semihosting driver. There
// is a single semihosting device; every open returns it.
func NewSemihosting(sh Semihost) Connector {
	return &shConnector{dev: &shDevice{sh: sh}}
}

func (c *shConnector) Open(spec any) (Device, error) {
	return c.dev, nil
}

type shDevice struct {
	sh Semihost
}

func (d *shDevice) Type() DeviceType {
	return TypeSemihosting
}

func (d *shDevice) Open(spec any) (Entity, error) {
	fs, ok := spec.(FileSpec)
	if !ok {
		return nil, fmt.Errorf("semihosting: %T: %w", spec, ErrBadSpec)
	}
	fd, err := d.sh.FileOpen(fs.Path, fs.Mode)
	if err != nil {
		return nil, fmt.Errorf("semihosting: open %q: %w", fs.Path, err)
	}
	if fd <= 0 {
		return nil, fmt.Errorf("semihosting: open %q returned descriptor %d", fs.Path, fd)
	}
	return &shFile{sh: d.sh, fd: fd}, nil
}

func (d *shDevice) Close() error {
	return nil
}

type shFile struct {
	sh Semihost
	fd int
}

// Seek only supports absolute offsets.
func (f *shFile) Seek(offset int64, whence int) error {
	if whence != io.SeekStart {
		return ErrSeekMode
	}
	return f.sh.FileSeek(f.fd, offset)
}

func (f *shFile) Size() (int64, error) {
	return f.sh.FileLength(f.fd)
}

// Read returns io.EOF once nothing is left to read.
func (f *shFile) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.sh.FileRead(f.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *shFile) Write(p []byte) (int, error) {
	return f.sh.FileWrite(f.fd, p)
}

func (f *shFile) Close() error {
	return f.sh.FileClose(f.fd)
}
