// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bootio

import (
	"fmt"
	"io"
)

// BlockSpec names a region of a memory mapped device.
type BlockSpec struct {
	Offset int64
	Length int64
}

type mmConnector struct {
	mem []byte
}

// NewMemmap returns the connector of a device backed by mem, such as a
// flash mapped into the address space.
func NewMemmap(mem []byte) Connector {
	return &mmConnector{mem: mem}
}

func (c *mmConnector) Open(spec any) (Device, error) {
	return &mmDevice{mem: c.mem}, nil
}

type mmDevice struct {
	mem []byte
}

func (d *mmDevice) Type() DeviceType {
	return TypeMemmap
}

func (d *mmDevice) Open(spec any) (Entity, error) {
	bs, ok := spec.(BlockSpec)
	if !ok {
		return nil, fmt.Errorf("memmap: %T: %w", spec, ErrBadSpec)
	}
	if bs.Offset < 0 || bs.Length < 0 || bs.Offset > int64(len(d.mem)) || bs.Length > int64(len(d.mem))-bs.Offset {
		return nil, fmt.Errorf("memmap: region %#x+%#x outside device of %#x bytes", bs.Offset, bs.Length, len(d.mem))
	}
	return &mmFile{b: d.mem[bs.Offset : bs.Offset+bs.Length]}, nil
}

func (d *mmDevice) Close() error {
	return nil
}

type mmFile struct {
	b   []byte
	pos int64
}

func (f *mmFile) Seek(offset int64, whence int) error {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.pos
	default:
		return ErrSeekMode
	}
	if offset < 0 || offset > int64(len(f.b)) {
		return fmt.Errorf("memmap: seek to %#x outside region of %#x bytes", offset, len(f.b))
	}
	f.pos = offset
	return nil
}

func (f *mmFile) Size() (int64, error) {
	return int64(len(f.b)), nil
}

func (f *mmFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.b)) {
		return 0, io.EOF
	}
	n := copy(p, f.b[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *mmFile) Write(p []byte) (int, error) {
	n := copy(f.b[f.pos:], p)
	f.pos += int64(n)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (f *mmFile) Close() error {
	return nil
}
