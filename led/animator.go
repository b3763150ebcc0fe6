// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package led

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/internal/runctl"
)

// Animator shows the state of the switches on the LEDs, as a sine ramp
// of brightness.
type Animator struct {
	msg *log.Logger
	act *fabric.Activator

	sw  fabric.Peripheral
	led fabric.Peripheral // LED nodes, indexed by device number

	channels int
	max      int
	steps    int
	period   int
	tick     time.Duration
}

// Option configures an Animator.
type Option func(a *Animator)

// WithLogger sets the logger of the animator.
func WithLogger(msg *log.Logger) Option {
	return func(a *Animator) {
		a.msg = msg
	}
}

// NewAnimator creates an animator for the switch and LED peripherals
// described by cfg.
func NewAnimator(act *fabric.Activator, cfg config.Config, opts ...Option) *Animator {
	a := &Animator{
		msg: log.New(os.Stdout, "led: ", 0),
		act: act,
		sw: fabric.Peripheral{
			Name:      "sw",
			Bitstream: cfg.Switch.Bitstream,
			Nodes:     []string{cfg.Switch.Node},
		},
		led: fabric.Peripheral{
			Name:      "led_pwm",
			Bitstream: cfg.LED.Bitstream,
			Nodes:     cfg.LED.Nodes(),
		},
		channels: cfg.LED.Channels,
		max:      cfg.LED.Max,
		steps:    cfg.LED.Steps,
		period:   cfg.LED.Period,
		tick:     cfg.LED.Tick,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run runs animation cycles until an error occurs or ctx is done.
func (a *Animator) Run(ctx context.Context) error {
	for {
		err := a.Cycle(ctx)
		if err != nil {
			return err
		}
	}
}

// Cycle runs one animation pass:
//   - load the switch peripheral, if needed,
//   - read the switch state,
//   - load the LED peripheral, if needed, and wait for all its nodes,
//   - ramp the brightness of the LEDs whose switch is on.
func (a *Animator) Cycle(ctx context.Context) error {
	err := a.act.EnsureActive(ctx, a.sw)
	if err != nil {
		return fmt.Errorf("led: could not activate switches: %w", err)
	}

	sw, err := ReadSwitches(a.sw.Nodes[0], a.channels)
	if err != nil {
		return err
	}
	a.msg.Printf("switches: %v", sw)

	err = a.act.EnsureActive(ctx, a.led)
	if err != nil {
		return fmt.Errorf("led: could not activate LEDs: %w", err)
	}

	return a.animate(ctx, sw)
}

func (a *Animator) animate(ctx context.Context, sw Switches) error {
	for t := 0; t < a.steps; t++ {
		v := Brightness(a.max, t, a.period)
		for ch, on := range sw {
			if !on {
				continue
			}
			node := a.led.Nodes[Device(ch, a.channels)]
			err := WriteBrightness(node, v)
			if err != nil {
				return fmt.Errorf("led: could not set channel %d (t=%d): %w", ch, t, err)
			}
		}

		err := runctl.Sleep(ctx, a.tick)
		if err != nil {
			return err
		}
	}
	return nil
}
