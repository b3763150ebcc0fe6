// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/led"
	"github.com/go-lpc/pldiag/rng"
	"github.com/go-lpc/pldiag/timer"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

type shell struct {
	cfg  config.Config
	act  *fabric.Activator
	out  io.Writer
	pers map[string]fabric.Peripheral
	cmds map[string]command
}

func newShell(cfg config.Config, out io.Writer) *shell {
	sh := &shell{
		cfg: cfg,
		act: newActivator(cfg, out),
		out: out,
		pers: map[string]fabric.Peripheral{
			"sw": {
				Name:      "sw",
				Bitstream: cfg.Switch.Bitstream,
				Nodes:     []string{cfg.Switch.Node},
			},
			"led": {
				Name:      "led_pwm",
				Bitstream: cfg.LED.Bitstream,
				Nodes:     cfg.LED.Nodes(),
			},
			"rng": rng.Peripheral(cfg),
			"timer": {
				Name:      "mytimer",
				Bitstream: cfg.Timer.Bitstream,
				Nodes:     []string{cfg.Timer.Node},
			},
		},
	}
	sh.cmds = map[string]command{
		"help":   {"help", "print this help message", sh.cmdHelp},
		"status": {"status", "print the state of all device nodes", sh.cmdStatus},
		"load":   {"load sw|led|rng|timer", "load the bitstream of a peripheral", sh.cmdLoad},
		"sw":     {"sw", "print the state of the switches", sh.cmdSwitches},
		"led":    {"led CH [VALUE]", "read or write the brightness of a LED channel", sh.cmdLED},
		"rng":    {"rng [N]", "read N samples from the random number generator", sh.cmdRNG},
		"seed":   {"seed B0 [B1]", "re-seed the random number generator", sh.cmdSeed},
		"timer":  {"timer [PERIOD]", "read or write the timer period", sh.cmdTimer},
		"quit":   {"quit", "exit the console", nil},
		"exit":   {"exit", "exit the console", nil},
	}
	return sh
}

// exec runs a single command line.
func (sh *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	cmd, ok := sh.cmds[args[0]]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	if cmd.run == nil {
		return true, nil
	}
	return false, cmd.run(ctx, args[1:])
}

func (sh *shell) cmdHelp(ctx context.Context, args []string) error {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := sh.cmds[name]
		fmt.Fprintf(sh.out, "  %-22s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (sh *shell) cmdStatus(ctx context.Context, args []string) error {
	fmt.Fprintf(sh.out, "sink: %s\n", sh.act.Sink())
	for _, name := range []string{"sw", "led", "rng", "timer"} {
		p := sh.pers[name]
		for _, node := range p.Nodes {
			var state string
			switch chr, err := fabric.IsCharDevice(node); {
			case err != nil:
				state = "missing"
			case chr:
				state = "ok"
			default:
				state = "not a char device"
			}
			fmt.Fprintf(sh.out, "%-6s %-20s %s\n", name, node, state)
		}
	}
	return nil
}

func (sh *shell) cmdLoad(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", sh.cmds["load"].usage)
	}
	p, ok := sh.pers[args[0]]
	if !ok {
		return fmt.Errorf("unknown peripheral %q", args[0])
	}
	return sh.act.EnsureActive(ctx, p)
}

func (sh *shell) activate(ctx context.Context, name string) (fabric.Peripheral, error) {
	p := sh.pers[name]
	err := sh.act.EnsureActive(ctx, p)
	if err != nil {
		return p, err
	}
	return p, nil
}

func (sh *shell) cmdSwitches(ctx context.Context, args []string) error {
	p, err := sh.activate(ctx, "sw")
	if err != nil {
		return err
	}
	sw, err := led.ReadSwitches(p.Nodes[0], sh.cfg.LED.Channels)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%v\n", sw)
	return nil
}

func (sh *shell) cmdLED(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s", sh.cmds["led"].usage)
	}
	ch, err := strconv.Atoi(args[0])
	if err != nil || ch < 0 || ch >= sh.cfg.LED.Channels {
		return fmt.Errorf("invalid LED channel %q", args[0])
	}

	p, err := sh.activate(ctx, "led")
	if err != nil {
		return err
	}
	node := p.Nodes[led.Device(ch, sh.cfg.LED.Channels)]

	if len(args) == 1 {
		v, err := led.ReadBrightness(node)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%d\n", v)
		return nil
	}

	v, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid brightness %q: %w", args[1], err)
	}
	return led.WriteBrightness(node, v)
}

func (sh *shell) cmdRNG(ctx context.Context, args []string) error {
	n := 1
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid number of samples %q", args[0])
		}
		n = v
	default:
		return fmt.Errorf("usage: %s", sh.cmds["rng"].usage)
	}

	p, err := sh.activate(ctx, "rng")
	if err != nil {
		return err
	}

	f, err := os.Open(p.Nodes[0])
	if err != nil {
		return fmt.Errorf("could not open RNG device: %w", err)
	}
	defer f.Close()

	rdr := rng.NewReader(f, 0)
	for i := 0; i < n; i++ {
		v, err := rdr.Next()
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, rng.Format(v))
	}
	return nil
}

func (sh *shell) cmdSeed(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > rng.SampleSize {
		return fmt.Errorf("usage: %s", sh.cmds["seed"].usage)
	}
	seed := make([]byte, len(args))
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid seed byte %q: %w", arg, err)
		}
		seed[i] = byte(v)
	}

	p, err := sh.activate(ctx, "rng")
	if err != nil {
		return err
	}
	return rng.Arm(p.Nodes[0], seed)
}

func (sh *shell) cmdTimer(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: %s", sh.cmds["timer"].usage)
	}

	p, err := sh.activate(ctx, "timer")
	if err != nil {
		return err
	}

	if len(args) == 0 {
		v, err := timer.Period(p.Nodes[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%d\n", v)
		return nil
	}

	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid timer period %q: %w", args[0], err)
	}
	stopped, err := timer.SetPeriod(p.Nodes[0], uint32(v))
	if err != nil {
		return err
	}
	if stopped {
		fmt.Fprintf(sh.out, "timer stopped (period < %d)\n", timer.MinPeriod)
	}
	return nil
}
