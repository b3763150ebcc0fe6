// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package led drives the PWM LEDs of the board, according to the state of
// the switches.
package led // import "github.com/go-lpc/pldiag/led"

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Brightness returns the brightness of a LED at time step t, for a sine
// ramp of amplitude max and of period steps.
//
// The value is not clamped: the second half of a period is negative.
func Brightness(max, t, period int) int {
	return int(math.Round(float64(max) * math.Sin(2*math.Pi*float64(t)/float64(period))))
}

// Device returns the device index driving the logical channel ch.
// Channels are wired in reverse order.
func Device(ch, n int) int {
	return n - 1 - ch
}

// Switches holds the on/off state of each LED channel.
type Switches []bool

// ParseSwitches decodes the n first flags of a switch-state line.
// Only '1' switches a channel on. Missing characters are off.
func ParseSwitches(line string, n int) Switches {
	sw := make(Switches, n)
	for i := range sw {
		sw[i] = i < len(line) && line[i] == '1'
	}
	return sw
}

func (sw Switches) String() string {
	o := new(strings.Builder)
	for _, on := range sw {
		if on {
			o.WriteByte('1')
			continue
		}
		o.WriteByte('0')
	}
	return o.String()
}

// ReadSwitches reads one line from the switch device node and decodes the
// state of n channels.
func ReadSwitches(node string, n int) (Switches, error) {
	f, err := os.Open(node)
	if err != nil {
		return nil, fmt.Errorf("led: could not open switch device: %w", err)
	}
	defer f.Close()

	line, err := readLine(f)
	if err != nil {
		return nil, fmt.Errorf("led: could not read switch state from %q: %w", node, err)
	}
	return ParseSwitches(line, n), nil
}

// readLine reads up to the first newline or NUL byte.
// The switch driver terminates its output with a NUL byte.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if i := bytes.IndexByte(line, 0); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// WriteBrightness writes the brightness v, as a decimal string, to the
// LED device node.
func WriteBrightness(node string, v int) error {
	err := os.WriteFile(node, []byte(strconv.Itoa(v)), 0644)
	if err != nil {
		return fmt.Errorf("led: could not write brightness: %w", err)
	}
	return nil
}

// ReadBrightness reads back the brightness of a LED device node.
func ReadBrightness(node string) (int, error) {
	raw, err := os.ReadFile(node)
	if err != nil {
		return 0, fmt.Errorf("led: could not read brightness: %w", err)
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("led: could not decode brightness from %q: %w", node, err)
	}
	return v, nil
}
