// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rng

import (
	"fmt"
	"io"

	"go-hep.org/x/hep/hbook"
)

// Stats accumulates the distribution of the generated samples and the
// frequency of each bit.
type Stats struct {
	h    *hbook.H1D
	bits [nbits]int64 // number of samples with bit i set
	n    int64
}

// NewStats creates an empty set of statistics.
func NewStats() *Stats {
	h := hbook.NewH1D(256, 0, 1<<nbits)
	h.Annotation()["name"] = "rng"
	h.Annotation()["title"] = "random number generator samples"
	return &Stats{h: h}
}

// Fill adds a sample.
func (st *Stats) Fill(v uint16) {
	st.h.Fill(float64(v), 1)
	for i := range st.bits {
		st.bits[i] += int64(v>>i) & 1
	}
	st.n++
}

// Entries returns the number of samples.
func (st *Stats) Entries() int64 { return st.n }

// Mean returns the mean value of the samples.
func (st *Stats) Mean() float64 { return st.h.XMean() }

// StdDev returns the standard deviation of the samples.
func (st *Stats) StdDev() float64 { return st.h.XStdDev() }

// BitFreq returns the fraction of samples with bit i set.
func (st *Stats) BitFreq(i int) float64 {
	if st.n == 0 {
		return 0
	}
	return float64(st.bits[i]) / float64(st.n)
}

// Summary writes a human readable summary of the statistics.
// Bit frequencies are listed least significant bit first, like Format.
func (st *Stats) Summary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "samples: %d\n", st.n)
	if err != nil {
		return err
	}
	if st.n == 0 {
		return nil
	}
	_, err = fmt.Fprintf(w, "mean:    %.1f\nstddev:  %.1f\n", st.Mean(), st.StdDev())
	if err != nil {
		return err
	}
	for i := range st.bits {
		_, err = fmt.Fprintf(w, "bit[%02d]: %.3f\n", i, st.BitFreq(i))
		if err != nil {
			return err
		}
	}
	return nil
}

// MarshalYODA encodes the distribution of samples in the YODA format.
func (st *Stats) MarshalYODA() ([]byte, error) {
	return st.h.MarshalYODA()
}
