// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fabric loads peripherals into the programmable logic of a Zynq
// board and waits for their device nodes to show up.
//
// Writing a bitstream into the configuration sink reprograms the fabric.
// The kernel then probes the drivers of the new peripherals, which
// create their device nodes asynchronously.
package fabric // import "github.com/go-lpc/pldiag/fabric"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrTimeout is returned when a device node did not show up
	// within the activation timeout.
	ErrTimeout = errors.New("fabric: activation timeout")

	errNoNode = errors.New("fabric: peripheral without device node")
)

// Peripheral describes a peripheral implemented in the programmable logic.
type Peripheral struct {
	Name      string
	Bitstream string   // bitstream implementing the peripheral
	Nodes     []string // device nodes created by the driver. Nodes[0] is probed.
}

// Exists reports whether the device node exists.
func Exists(node string) bool {
	return unix.Access(node, unix.F_OK) == nil
}

// IsCharDevice reports whether node is a character special file.
func IsCharDevice(node string) (bool, error) {
	var st unix.Stat_t
	err := unix.Stat(node, &st)
	if err != nil {
		return false, &os.PathError{Op: "stat", Path: node, Err: err}
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR, nil
}

// Load streams the content of the bitstream file into the configuration sink.
// The sink is closed before Load returns.
func Load(sink, bitstream string) error {
	src, err := os.Open(bitstream)
	if err != nil {
		return fmt.Errorf("fabric: could not open bitstream: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(sink, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("fabric: could not open configuration sink: %w", err)
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("fabric: could not write bitstream %q to %q: %w", bitstream, sink, err)
	}

	err = dst.Close()
	if err != nil {
		return fmt.Errorf("fabric: could not close configuration sink: %w", err)
	}
	return nil
}

// Activator loads peripherals into the fabric.
type Activator struct {
	msg  *log.Logger
	sink string

	exists  func(node string) bool
	load    func(sink, bitstream string) error
	poll    time.Duration
	timeout time.Duration
}

// NewActivator creates an activator writing bitstreams into sink.
func NewActivator(sink string, opts ...Option) *Activator {
	act := &Activator{
		msg:    log.New(os.Stdout, "fabric: ", 0),
		sink:   sink,
		exists: Exists,
		load:   Load,
		poll:   1 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(act)
	}
	return act
}

// Sink returns the configuration sink of the activator.
func (act *Activator) Sink() string { return act.sink }

// EnsureActive makes sure the peripheral p is loaded into the fabric.
//
// When the first device node of p already exists, EnsureActive does not
// touch the configuration sink. Otherwise, the bitstream of p is written
// into the sink and EnsureActive waits for the node to appear.
// EnsureActive then waits for the remaining device nodes of p, in
// sequence. All the waits share the activation timeout.
func (act *Activator) EnsureActive(ctx context.Context, p Peripheral) error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("%w (peripheral=%q)", errNoNode, p.Name)
	}

	deadline, stop := act.deadline()
	defer stop()

	node := p.Nodes[0]
	if !act.exists(node) {
		act.msg.Printf("loading %q from %q...", p.Name, p.Bitstream)
		err := act.load(act.sink, p.Bitstream)
		if err != nil {
			return fmt.Errorf("fabric: could not load peripheral %q: %w", p.Name, err)
		}

		err = act.wait(ctx, deadline, node)
		if err != nil {
			return fmt.Errorf("fabric: could not activate peripheral %q: %w", p.Name, err)
		}
		act.msg.Printf("loading %q from %q... [ok]", p.Name, p.Bitstream)
	}

	for _, node := range p.Nodes[1:] {
		err := act.wait(ctx, deadline, node)
		if err != nil {
			return fmt.Errorf("fabric: could not activate peripheral %q: %w", p.Name, err)
		}
	}
	return nil
}

// Wait waits for each of the device nodes to exist, one after the other.
func (act *Activator) Wait(ctx context.Context, nodes ...string) error {
	deadline, stop := act.deadline()
	defer stop()

	for _, node := range nodes {
		err := act.wait(ctx, deadline, node)
		if err != nil {
			return err
		}
	}
	return nil
}

// deadline returns a channel firing when the activation timeout elapses.
// The channel is nil when there is no timeout.
func (act *Activator) deadline() (<-chan time.Time, func()) {
	if act.timeout <= 0 {
		return nil, func() {}
	}
	tmr := time.NewTimer(act.timeout)
	return tmr.C, func() { tmr.Stop() }
}

func (act *Activator) wait(ctx context.Context, deadline <-chan time.Time, node string) error {
	for !act.exists(node) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: no device node %q after %v", ErrTimeout, node, act.timeout)
		default:
		}

		if act.poll > 0 {
			time.Sleep(act.poll)
			continue
		}
		runtime.Gosched()
	}
	return nil
}
