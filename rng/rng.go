// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rng reads samples from the hardware random number generator
// implemented in the programmable logic.
package rng // import "github.com/go-lpc/pldiag/rng"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// SampleSize is the size in bytes of a sample read from the device.
	SampleSize = 2

	nbits = 8 * SampleSize
)

var (
	// ErrShortRead is returned when the device did not provide a full sample.
	ErrShortRead = errors.New("rng: short read")

	// ArmPayload is written once to the device to start the generator.
	ArmPayload = []byte{1, 1}
)

// Format renders v as a string of 16 binary digits, least significant
// bit first.
//
// Format(5) is "1010000000000000".
// The bit order is the reverse of the usual notation. It is kept as is
// since downstream consumers may parse it this way.
func Format(v uint16) string {
	var o [nbits]byte
	for i := range o {
		o[i] = '0' + byte(v%2)
		v /= 2
	}
	return string(o[:])
}

// Decode decodes a sample, in the byte order of the host.
func Decode(p []byte) uint16 {
	return binary.NativeEndian.Uint16(p[:SampleSize])
}

// Arm writes the seed to the device node, which (re)starts the generator.
// The device uses at most 2 bytes of the seed.
func Arm(node string, seed []byte) error {
	if len(seed) == 0 || len(seed) > SampleSize {
		return fmt.Errorf("rng: invalid seed length %d", len(seed))
	}

	f, err := os.OpenFile(node, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("rng: could not open device: %w", err)
	}
	defer f.Close()

	_, err = f.Write(seed)
	if err != nil {
		return fmt.Errorf("rng: could not write seed to %q: %w", node, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("rng: could not close device %q: %w", node, err)
	}
	return nil
}

// Reader reads samples from a random number generator device.
type Reader struct {
	r       io.Reader
	buf     [SampleSize]byte
	retries int
}

// NewReader returns a reader of samples from r.
//
// With retries > 0, a short read is retried, up to retries times, to
// complete the sample. Otherwise a short read fails with ErrShortRead.
func NewReader(r io.Reader, retries int) *Reader {
	return &Reader{r: r, retries: retries}
}

// Next reads the next sample.
func (r *Reader) Next() (uint16, error) {
	var (
		n     = 0
		tries = 0
	)
	for n < SampleSize {
		nn, err := r.r.Read(r.buf[n:])
		n += nn
		if n == SampleSize {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("rng: could not read sample: %w", err)
		}
		if nn > 0 && err == nil {
			continue
		}
		if tries >= r.retries {
			return 0, fmt.Errorf("%w (got %d bytes, want %d)", ErrShortRead, n, SampleSize)
		}
		tries++
	}
	return Decode(r.buf[:]), nil
}
