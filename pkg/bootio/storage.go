// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bootio is the I/O layer the monitor uses to load images at
// boot. Drivers register a device in a Storage, and images are opened on
// a device as entities through a small pool of handles.
package bootio

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Table sizes.
const (
	MaxDevices = 4
	MaxHandles = 4
)

// DeviceType identifies a driver.
type DeviceType int

// Device types.
const (
	TypeSemihosting DeviceType = iota + 1
	TypeMemmap
)

func (t DeviceType) String() string {
	switch t {
	case TypeSemihosting:
		return "semihosting"
	case TypeMemmap:
		return "memmap"
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

// Errors returned by the I/O layer.
var (
	ErrNoDeviceSlot = errors.New("device table full")
	ErrNoHandle     = errors.New("no free entity handle")
	ErrBadHandle    = errors.New("invalid handle")
	ErrBadSpec      = errors.New("unsupported specification")
	ErrSeekMode     = errors.New("unsupported seek mode")
)

// Connector opens a device of a driver.
type Connector interface {
	Open(spec any) (Device, error)
}

// Device is an open device on which entities are opened.
type Device interface {
	Type() DeviceType
	Open(spec any) (Entity, error)
	Close() error
}

// Entity is an open object on a device, typically an image file.
type Entity interface {
	// Seek moves to offset. whence takes the io.Seek* values; devices may
	// only support some of them.
	Seek(offset int64, whence int) error
	Size() (int64, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// DeviceHandle names a registered device.
type DeviceHandle int

// Storage is a fixed size table of devices and entity handles.
type Storage struct {
	mu      sync.Mutex
	devices [MaxDevices]Device
	handles [MaxHandles]Entity
}

// NewStorage returns an empty table.
func NewStorage() *Storage {
	return &Storage{}
}

// Register opens a device through c and adds it to the table.
func (s *Storage) Register(c Connector, spec any) (DeviceHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := -1
	for i, d := range s.devices {
		if d == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, ErrNoDeviceSlot
	}
	d, err := c.Open(spec)
	if err != nil {
		return 0, err
	}
	s.devices[slot] = d
	return DeviceHandle(slot), nil
}

// Device returns the registered device h.
func (s *Storage) Device(h DeviceHandle) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device(h)
}

func (s *Storage) device(h DeviceHandle) (Device, error) {
	if h < 0 || int(h) >= len(s.devices) || s.devices[h] == nil {
		return nil, fmt.Errorf("device %d: %w", h, ErrBadHandle)
	}
	return s.devices[h], nil
}

// Unregister closes device h and frees its slot. Entities opened on it
// must be closed first.
func (s *Storage) Unregister(h DeviceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.device(h)
	if err != nil {
		return err
	}
	s.devices[h] = nil
	return d.Close()
}

// Open opens an entity on device h. The returned File holds one of the
// MaxHandles handles until it is closed.
func (s *Storage) Open(h DeviceHandle, spec any) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.device(h)
	if err != nil {
		return nil, err
	}
	slot := -1
	for i, e := range s.handles {
		if e == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrNoHandle
	}
	e, err := d.Open(spec)
	if err != nil {
		return nil, err
	}
	s.handles[slot] = e
	return &File{s: s, slot: slot, e: e}, nil
}

// InUse returns the number of entity handles taken.
func (s *Storage) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.handles {
		if e != nil {
			n++
		}
	}
	return n
}

// File is an entity opened through a Storage.
type File struct {
	s    *Storage
	slot int
	e    Entity
}

var (
	_ io.Reader = (*File)(nil)
	_ io.Writer = (*File)(nil)
)

func (f *File) entity() (Entity, error) {
	if f.e == nil {
		return nil, ErrBadHandle
	}
	return f.e, nil
}

// Seek moves to offset relative to whence.
func (f *File) Seek(offset int64, whence int) error {
	e, err := f.entity()
	if err != nil {
		return err
	}
	return e.Seek(offset, whence)
}

// Size returns the size of the entity.
func (f *File) Size() (int64, error) {
	e, err := f.entity()
	if err != nil {
		return 0, err
	}
	return e.Size()
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	e, err := f.entity()
	if err != nil {
		return 0, err
	}
	return e.Read(p)
}

// Write implements io.Writer.
func (f *File) Write(p []byte) (int, error) {
	e, err := f.entity()
	if err != nil {
		return 0, err
	}
	return e.Write(p)
}

// Close closes the entity and returns its handle to the pool.
func (f *File) Close() error {
	e, err := f.entity()
	if err != nil {
		return err
	}
	f.e = nil
	f.s.mu.Lock()
	f.s.handles[f.slot] = nil
	f.s.mu.Unlock()
	return e.Close()
}
