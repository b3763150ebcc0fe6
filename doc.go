// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pldiag holds diagnostic tools for the peripherals implemented
// in the programmable logic of a Zynq board.
//
// Peripherals are brought up by streaming their bitstream into the
// configuration sink (/dev/xdevcfg) and waiting for the kernel drivers to
// create their device nodes. The tools then poll those nodes:
//
//   - led-pwm animates the 8 PWM-driven LEDs, according to the switches.
//   - rng-dump prints the output of the hardware random number generator.
//   - rng-srv streams that output as a tdaq process.
//   - pl-ctl is an interactive console for all the peripherals.
package pldiag // import "github.com/go-lpc/pldiag"

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Version returns the version of pldiag and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

// PrintVersion writes the version of the command cmd to w.
func PrintVersion(w io.Writer, cmd string) {
	version, sum := Version()
	printVersion(w, cmd, version, sum)
}

func printVersion(w io.Writer, cmd, version, sum string) {
	if version == "" {
		version = "(unknown)"
	}
	if sum == "" {
		fmt.Fprintf(w, "%s %s\n", cmd, version)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", cmd, version, sum)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/pldiag"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}

	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
