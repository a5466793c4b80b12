// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bootio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var errBadFD = errors.New("bad file descriptor")

// HostSemihost serves semihosting file operations from a directory of the
// host, the way a model started in that directory does.
type HostSemihost struct {
	Root string

	mu    sync.Mutex
	next  int
	files map[int]*os.File
}

var _ Semihost = (*HostSemihost)(nil)

// NewHostSemihost serves files below root.
func NewHostSemihost(root string) *HostSemihost {
	return &HostSemihost{Root: root, next: 1, files: map[int]*os.File{}}
}

func (h *HostSemihost) file(fd int) (*os.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[fd]
	if !ok {
		return nil, fmt.Errorf("fd %d: %w", fd, errBadFD)
	}
	return f, nil
}

// FileOpen implements Semihost. path is resolved below Root.
func (h *HostSemihost) FileOpen(path string, mode Mode) (int, error) {
	name := filepath.Join(h.Root, filepath.Clean("/"+path))
	var (
		f   *os.File
		err error
	)
	switch mode {
	case ModeRead:
		f, err = os.Open(name)
	case ModeWrite:
		f, err = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	default:
		return -1, fmt.Errorf("open mode %v not supported", mode)
	}
	if err != nil {
		return -1, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fd := h.next
	h.next++
	h.files[fd] = f
	return fd, nil
}

// FileSeek implements Semihost.
func (h *HostSemihost) FileSeek(fd int, offset int64) error {
	f, err := h.file(fd)
	if err != nil {
		return err
	}
	_, err = f.Seek(offset, io.SeekStart)
	return err
}

// FileLength implements Semihost.
func (h *HostSemihost) FileLength(fd int) (int64, error) {
	f, err := h.file(fd)
	if err != nil {
		return -1, err
	}
	fi, err := f.Stat()
	if err != nil {
		return -1, err
	}
	return fi.Size(), nil
}

// FileRead implements Semihost. A short count, zero included, means the
// end of the file was reached.
func (h *HostSemihost) FileRead(fd int, p []byte) (int, error) {
	f, err := h.file(fd)
	if err != nil {
		return 0, err
	}
	n, err := io.ReadFull(f, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}

// FileWrite implements Semihost.
func (h *HostSemihost) FileWrite(fd int, p []byte) (int, error) {
	f, err := h.file(fd)
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

// FileClose implements Semihost.
func (h *HostSemihost) FileClose(fd int) error {
	h.mu.Lock()
	f, ok := h.files[fd]
	delete(h.files, fd)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("fd %d: %w", fd, errBadFD)
	}
	return f.Close()
}
