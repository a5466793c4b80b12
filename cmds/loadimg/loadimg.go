// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// loadimg loads an image the way the monitor does at cold boot and prints
// its size.
//
// Synopsis:
//
//	loadimg [--root DIR] [--limit SIZE] [-o OUT] PATH
//	loadimg --flash FILE [--offset N] [--length N] [--limit SIZE] [-o OUT]
//
// Without --flash, PATH is opened on the semihosting device serving DIR.
// With it, FILE is mapped as a memory device and the region at offset is
// loaded. xz compressed images are unpacked.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/linuxboot/secmon/pkg/bootio"
	"github.com/linuxboot/secmon/pkg/log"
)

var (
	root   = flag.StringP("root", "r", ".", "directory served over semihosting")
	flash  = flag.String("flash", "", "file mapped as a memory device")
	offset = flag.Int64("offset", 0, "offset of the image in the flash")
	length = flag.Int64("length", 0, "length of the image in the flash; the rest of the flash if zero")
	limit  = flag.String("limit", "0", "size of the load region, e.g. 2MiB; unbounded if zero")
	out    = flag.StringP("output", "o", "", "write the loaded image to this file")
)

func load(s *bootio.Storage, max int64) ([]byte, error) {
	if *flash != "" {
		mem, err := os.ReadFile(*flash)
		if err != nil {
			return nil, err
		}
		n := *length
		if n == 0 {
			n = int64(len(mem)) - *offset
		}
		dev, err := s.Register(bootio.NewMemmap(mem), nil)
		if err != nil {
			return nil, err
		}
		return bootio.LoadImage(s, dev, bootio.BlockSpec{Offset: *offset, Length: n}, max)
	}

	a := flag.Args()
	if len(a) != 1 {
		return nil, fmt.Errorf("usage: loadimg [--root DIR] PATH")
	}
	dev, err := s.Register(bootio.NewSemihosting(bootio.NewHostSemihost(*root)), nil)
	if err != nil {
		return nil, err
	}
	return bootio.LoadImage(s, dev, bootio.FileSpec{Path: a[0], Mode: bootio.ModeRead}, max)
}

func main() {
	flag.Parse()

	max, err := humanize.ParseBytes(*limit)
	if err != nil {
		log.Fatalf("invalid limit: %v", err)
	}
	data, err := load(bootio.NewStorage(), int64(max))
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("%s (%d bytes)\n", humanize.IBytes(uint64(len(data))), len(data))

	if *out != "" {
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("%v", err)
		}
	}
}
