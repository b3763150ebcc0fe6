// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fabric

import (
	"log"
	"time"
)

// Option configures an Activator.
type Option func(act *Activator)

// WithLogger sets the logger used to report peripheral loading.
func WithLogger(msg *log.Logger) Option {
	return func(act *Activator) {
		act.msg = msg
	}
}

// WithPoll sets the delay between two probes of a device node.
// A zero delay busy-waits.
func WithPoll(poll time.Duration) Option {
	return func(act *Activator) {
		act.poll = poll
	}
}

// WithTimeout bounds the time spent waiting for the device nodes of a
// peripheral, in a single EnsureActive or Wait call.
// A zero timeout waits forever.
func WithTimeout(timeout time.Duration) Option {
	return func(act *Activator) {
		act.timeout = timeout
	}
}

// WithProbe replaces the predicate used to test for the existence of a
// device node.
func WithProbe(exists func(node string) bool) Option {
	return func(act *Activator) {
		act.exists = exists
	}
}

// WithLoader replaces the function writing a bitstream into the
// configuration sink.
func WithLoader(load func(sink, bitstream string) error) Option {
	return func(act *Activator) {
		act.load = load
	}
}
