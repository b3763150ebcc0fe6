// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rng

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestConfig(t *testing.T, samples ...uint16) config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Sink = filepath.Join(dir, "xdevcfg")
	cfg.RNG.Bitstream = filepath.Join(dir, "rng.bit")
	cfg.RNG.Node = filepath.Join(dir, "myrandom")
	cfg.RNG.Tick = 0

	var raw []byte
	for _, v := range samples {
		raw = append(raw, sample(v)...)
	}
	err := os.WriteFile(cfg.RNG.Node, raw, 0644)
	if err != nil {
		t.Fatalf("could not create device: %+v", err)
	}
	return cfg
}

func TestSession(t *testing.T) {
	// the seed written when arming lands at the head of the fake device.
	cfg := newTestConfig(t, 0, 5, 0x8000)

	var (
		out   = new(bytes.Buffer)
		msg   = new(bytes.Buffer)
		stats = NewStats()
		act   = fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet()))
		sess  = NewSession(
			act, cfg,
			WithLogger(log.New(msg, "rng: ", 0)),
			WithOutput(out),
			WithSamples(3),
			WithStats(stats),
		)
	)

	err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("could not run session: %+v", err)
	}

	want := strings.Join([]string{
		"1000000010000000",
		"1010000000000000",
		"0000000000000001",
	}, "\n") + "\n"
	if got := out.String(); got != want {
		t.Fatalf("invalid output:\ngot:\n%s\nwant:\n%s", got, want)
	}

	if got, want := msg.String(), "rng: random number generator initialized.\n"; got != want {
		t.Fatalf("invalid log:\ngot= %q\nwant=%q", got, want)
	}

	if got, want := stats.Entries(), int64(3); got != want {
		t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
	}

	if fabric.Exists(cfg.Sink) {
		t.Fatalf("configuration sink should not have been written")
	}
}

func TestSessionLastSample(t *testing.T) {
	cfg := newTestConfig(t, 0)
	cfg.RNG.Tick = time.Hour

	out := new(bytes.Buffer)
	sess := NewSession(
		fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet())), cfg,
		WithLogger(quiet()),
		WithOutput(out),
		WithSamples(1),
	)

	// no pause after the last sample.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("could not run session: %+v", err)
	}
	if got, want := out.String(), "1000000010000000\n"; got != want {
		t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
	}
}

func TestSessionShortRead(t *testing.T) {
	cfg := newTestConfig(t, 0, 5)

	out := new(bytes.Buffer)
	sess := NewSession(
		fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet())), cfg,
		WithLogger(quiet()),
		WithOutput(out),
	)

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrShortRead)
	}

	if got, want := out.String(), "1000000010000000\n1010000000000000\n"; got != want {
		t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
	}
}

func TestSessionCanceled(t *testing.T) {
	cfg := newTestConfig(t, 0, 1, 2, 3)
	cfg.RNG.Tick = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out := new(bytes.Buffer)
	sess := NewSession(
		fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet())), cfg,
		WithLogger(quiet()),
		WithOutput(out),
	)

	err := sess.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := out.String(), "1000000010000000\n"; got != want {
		t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
	}
}

func TestSessionActivation(t *testing.T) {
	cfg := newTestConfig(t)
	err := os.Remove(cfg.RNG.Node)
	if err != nil {
		t.Fatalf("could not remove device: %+v", err)
	}
	err = os.WriteFile(cfg.RNG.Bitstream, []byte("rng"), 0644)
	if err != nil {
		t.Fatalf("could not create bitstream: %+v", err)
	}

	load := func(sink, bitstream string) error {
		err := fabric.Load(sink, bitstream)
		if err != nil {
			return err
		}
		return os.WriteFile(cfg.RNG.Node, append(sample(0), sample(0xffff)...), 0644)
	}

	out := new(bytes.Buffer)
	sess := NewSession(
		fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet()), fabric.WithLoader(load)),
		cfg,
		WithLogger(quiet()),
		WithOutput(out),
		WithSamples(2),
	)

	err = sess.Run(context.Background())
	if err != nil {
		t.Fatalf("could not run session: %+v", err)
	}
	if got, want := out.String(), "1000000010000000\n1111111111111111\n"; got != want {
		t.Fatalf("invalid output:\ngot= %q\nwant=%q", got, want)
	}

	raw, err := os.ReadFile(cfg.Sink)
	if err != nil {
		t.Fatalf("could not read sink: %+v", err)
	}
	if got, want := string(raw), "rng"; got != want {
		t.Fatalf("invalid sink content: got=%q, want=%q", got, want)
	}
}

func TestSessionActivationTimeout(t *testing.T) {
	cfg := newTestConfig(t)
	_ = os.Remove(cfg.RNG.Node)

	sess := NewSession(
		fabric.NewActivator(
			cfg.Sink,
			fabric.WithLogger(quiet()),
			fabric.WithLoader(func(sink, bitstream string) error { return nil }),
			fabric.WithTimeout(5*time.Millisecond),
		),
		cfg,
		WithLogger(quiet()),
		WithOutput(io.Discard),
	)

	err := sess.Run(context.Background())
	if !errors.Is(err, fabric.ErrTimeout) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, fabric.ErrTimeout)
	}
}
