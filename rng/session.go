// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rng

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/internal/runctl"
)

// Session loads the random number generator, arms it and prints its
// samples at a fixed rate.
type Session struct {
	msg *log.Logger
	act *fabric.Activator
	dev fabric.Peripheral

	tick    time.Duration
	n       int // number of samples to read, 0 for no limit
	retries int
	out     io.Writer
	stats   *Stats
}

// Option configures a Session.
type Option func(s *Session)

// WithLogger sets the logger of the session.
func WithLogger(msg *log.Logger) Option {
	return func(s *Session) {
		s.msg = msg
	}
}

// WithOutput sets where samples are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithSamples limits the session to n samples.
// The session runs forever when n <= 0.
func WithSamples(n int) Option {
	return func(s *Session) {
		s.n = n
	}
}

// WithRetries sets the number of retries allowed to complete a short read.
func WithRetries(n int) Option {
	return func(s *Session) {
		s.retries = n
	}
}

// WithStats accumulates the samples into st.
func WithStats(st *Stats) Option {
	return func(s *Session) {
		s.stats = st
	}
}

// Peripheral returns the random number generator peripheral described
// by cfg.
func Peripheral(cfg config.Config) fabric.Peripheral {
	return fabric.Peripheral{
		Name:      "myrandom",
		Bitstream: cfg.RNG.Bitstream,
		Nodes:     []string{cfg.RNG.Node},
	}
}

// NewSession creates a session for the random number generator described
// by cfg.
func NewSession(act *fabric.Activator, cfg config.Config, opts ...Option) *Session {
	s := &Session{
		msg:  log.New(os.Stdout, "rng: ", 0),
		act:  act,
		dev:  Peripheral(cfg),
		tick: cfg.RNG.Tick,
		out:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run activates and arms the generator, then prints samples until the
// sample limit is reached, an error occurs or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	err := s.act.EnsureActive(ctx, s.dev)
	if err != nil {
		return fmt.Errorf("rng: could not activate generator: %w", err)
	}

	node := s.dev.Nodes[0]
	err = Arm(node, ArmPayload)
	if err != nil {
		return fmt.Errorf("rng: could not initialize generator: %w", err)
	}
	s.msg.Printf("random number generator initialized.")

	f, err := os.Open(node)
	if err != nil {
		return fmt.Errorf("rng: could not open generator: %w", err)
	}
	defer f.Close()

	r := NewReader(f, s.retries)
	for i := 0; s.n <= 0 || i < s.n; i++ {
		v, err := r.Next()
		if err != nil {
			return fmt.Errorf("rng: could not read sample %d: %w", i, err)
		}

		_, err = fmt.Fprintln(s.out, Format(v))
		if err != nil {
			return fmt.Errorf("rng: could not print sample %d: %w", i, err)
		}

		if s.stats != nil {
			s.stats.Fill(v)
		}

		if s.n > 0 && i == s.n-1 {
			break
		}

		err = runctl.Sleep(ctx, s.tick)
		if err != nil {
			return err
		}
	}
	return nil
}
