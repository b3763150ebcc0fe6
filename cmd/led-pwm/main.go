// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command led-pwm shows the state of the board switches on the PWM LEDs.
//
// The switch and LED peripherals are loaded into the FPGA when their
// device nodes are missing. The state of the switches is then read and
// the brightness of the LEDs whose switch is on follows a sine ramp.
// The whole sequence repeats until the command is interrupted.
//
// Usage: led-pwm [OPTIONS]
//
// Example:
//
//	$> led-pwm -v
//	led-pwm: loading "sw" from "/sd/bit/my_axi_sw.bit"...
//	led-pwm: loading "sw" from "/sd/bit/my_axi_sw.bit"... [ok]
//	led-pwm: switches: 10000001
//	led-pwm: loading "led_pwm" from "/sd/bit/my_axi_pwm.bit"...
//	led-pwm: loading "led_pwm" from "/sd/bit/my_axi_pwm.bit"... [ok]
//	led-pwm: switches: 10000001
//	[...]
package main // import "github.com/go-lpc/pldiag/cmd/led-pwm"

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/pldiag"
	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/internal/runctl"
	"github.com/go-lpc/pldiag/led"
)

func main() {
	log.SetPrefix("led-pwm: ")
	log.SetFlags(0)

	var (
		fname   = flag.String("cfg", "", "path to a YAML configuration file")
		vers    = flag.Bool("version", false, "print version and exit")
		timeout = flag.Duration("timeout", 0, "activation timeout (0: wait forever)")
		verbose = flag.Bool("v", false, "enable verbose mode")
	)

	flag.Parse()

	if *vers {
		pldiag.PrintVersion(os.Stdout, "led-pwm")
		return
	}

	cfg := config.Default()
	if *fname != "" {
		var err error
		cfg, err = config.Load(*fname)
		if err != nil {
			log.Fatalf("could not load configuration: %+v", err)
		}
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	err := run(cfg, *verbose, nil)
	if err != nil {
		log.Fatalf("could not run LED animation: %+v", err)
	}
}

func run(cfg config.Config, verbose bool, stop chan os.Signal) error {
	var (
		msg = log.New(os.Stdout, "led-pwm: ", 0)
		dbg = log.New(io.Discard, "led-pwm: ", 0)
	)
	if verbose {
		dbg.SetOutput(os.Stdout)
	}

	act := fabric.NewActivator(
		cfg.Sink,
		fabric.WithLogger(msg),
		fabric.WithPoll(cfg.Poll),
		fabric.WithTimeout(cfg.Timeout),
	)
	anim := led.NewAnimator(act, cfg, led.WithLogger(dbg))

	start := time.Now()
	defer func() {
		dbg.Printf("ran for %v", time.Since(start).Round(time.Millisecond))
	}()

	return runctl.Run(context.Background(), stop, anim.Run)
}
