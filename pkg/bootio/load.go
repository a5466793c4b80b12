// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bootio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"

	"github.com/linuxboot/secmon/pkg/log"
)

var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// ErrTooLarge is returned for images that do not fit their load region.
var ErrTooLarge = errors.New("image too large")

// LoadImage reads the entity spec of device dev in full. xz compressed
// images are unpacked. limit bounds the size of the image as loaded; zero
// means no bound.
func LoadImage(s *Storage, dev DeviceHandle, spec any, limit int64) ([]byte, error) {
	f, err := s.Open(dev, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid image size %d", size)
	}
	magic := make([]byte, min(size, int64(len(xzMagic))))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	packed := bytes.Equal(magic, xzMagic)
	if !packed && limit > 0 && size > limit {
		return nil, fmt.Errorf("%s over %s: %w", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)), ErrTooLarge)
	}
	data := make([]byte, size)
	copy(data, magic)
	if _, err := io.ReadFull(f, data[len(magic):]); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if !packed {
		return data, nil
	}

	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to create an xz reader for the image: %w", err)
	}
	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	out, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress the image: %w", err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, fmt.Errorf("unpacked image over %s: %w", humanize.IBytes(uint64(limit)), ErrTooLarge)
	}
	log.Infof("bootio: unpacked %s image to %s", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(len(out))))
	return out, nil
}
