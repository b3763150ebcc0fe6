// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the device paths and constants used to drive the
// programmable-logic peripherals.
package config // import "github.com/go-lpc/pldiag/config"

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the configuration sink and the peripherals that can
// be loaded through it.
type Config struct {
	Sink    string        `yaml:"sink"`    // configuration sink of the FPGA fabric
	Poll    time.Duration `yaml:"poll"`    // delay between two probes of a device node
	Timeout time.Duration `yaml:"timeout"` // activation timeout, 0 waits forever

	Switch Peripheral `yaml:"switch"`
	LED    LED        `yaml:"led"`
	RNG    RNG        `yaml:"rng"`
	Timer  Peripheral `yaml:"timer"`
}

// Peripheral describes a peripheral exposing a single device node.
type Peripheral struct {
	Bitstream string `yaml:"bitstream"`
	Node      string `yaml:"node"`
}

// LED describes the PWM LED peripheral.
type LED struct {
	Bitstream string `yaml:"bitstream"`
	Node      string `yaml:"node"` // fmt pattern, indexed by device number

	Channels int           `yaml:"channels"`
	Max      int           `yaml:"max"`    // maximum brightness
	Steps    int           `yaml:"steps"`  // time steps per animation pass
	Period   int           `yaml:"period"` // time steps per sine period
	Tick     time.Duration `yaml:"tick"`
}

// RNG describes the random number generator peripheral.
type RNG struct {
	Bitstream string        `yaml:"bitstream"`
	Node      string        `yaml:"node"`
	Tick      time.Duration `yaml:"tick"`
}

const (
	DefaultSink = "/dev/xdevcfg"
	DefaultPoll = 1 * time.Millisecond

	NumLEDs       = 8
	MaxBrightness = 100000
)

// Default returns the configuration of the reference Zynq setup.
func Default() Config {
	return Config{
		Sink: DefaultSink,
		Poll: DefaultPoll,
		Switch: Peripheral{
			Bitstream: "/sd/bit/my_axi_sw.bit",
			Node:      "/dev/sw",
		},
		LED: LED{
			Bitstream: "/sd/bit/my_axi_pwm.bit",
			Node:      "/dev/led_pwm%d",
			Channels:  NumLEDs,
			Max:       MaxBrightness,
			Steps:     11,
			Period:    20,
			Tick:      300 * time.Millisecond,
		},
		RNG: RNG{
			Bitstream: "/sd/bit/my_axi_rng.bit",
			Node:      "/dev/myrandom",
			Tick:      500 * time.Millisecond,
		},
		Timer: Peripheral{
			Bitstream: "/sd/bit/my_axi_timer.bit",
			Node:      "/dev/mytimer",
		},
	}
}

// Load reads the YAML file fname and applies it on top of the default
// configuration.
func Load(fname string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(fname)
	if err != nil {
		return cfg, fmt.Errorf("config: could not read %q: %w", fname, err)
	}

	err = yaml.Unmarshal(raw, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not decode %q: %w", fname, err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("config: invalid configuration %q: %w", fname, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to fname.
func Save(fname string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: could not encode configuration: %w", err)
	}
	err = os.WriteFile(fname, raw, 0644)
	if err != nil {
		return fmt.Errorf("config: could not write %q: %w", fname, err)
	}
	return nil
}

// Validate checks the configuration is usable.
func (cfg Config) Validate() error {
	switch {
	case cfg.Sink == "":
		return fmt.Errorf("missing configuration sink")
	case cfg.Poll < 0:
		return fmt.Errorf("invalid poll interval %v", cfg.Poll)
	case cfg.Timeout < 0:
		return fmt.Errorf("invalid activation timeout %v", cfg.Timeout)
	}

	for _, p := range []struct {
		name string
		bit  string
		node string
	}{
		{"switch", cfg.Switch.Bitstream, cfg.Switch.Node},
		{"led", cfg.LED.Bitstream, cfg.LED.Node},
		{"rng", cfg.RNG.Bitstream, cfg.RNG.Node},
		{"timer", cfg.Timer.Bitstream, cfg.Timer.Node},
	} {
		if p.bit == "" {
			return fmt.Errorf("missing %s bitstream", p.name)
		}
		if p.node == "" {
			return fmt.Errorf("missing %s device node", p.name)
		}
	}

	switch {
	case !validPattern(cfg.LED.Node):
		return fmt.Errorf("invalid LED device node pattern %q (want a single integer verb, e.g. %%d)", cfg.LED.Node)
	case cfg.LED.Channels <= 0:
		return fmt.Errorf("invalid number of LED channels %d", cfg.LED.Channels)
	case cfg.LED.Max < 0:
		return fmt.Errorf("invalid LED maximum brightness %d", cfg.LED.Max)
	case cfg.LED.Period <= 0:
		return fmt.Errorf("invalid LED sine period %d", cfg.LED.Period)
	case cfg.LED.Steps <= 0:
		return fmt.Errorf("invalid number of LED steps %d", cfg.LED.Steps)
	}
	return nil
}

// validPattern reports whether the node pattern yields a distinct, well
// formed path per device number.
func validPattern(pattern string) bool {
	n0 := fmt.Sprintf(pattern, 0)
	n1 := fmt.Sprintf(pattern, 1)
	return n0 != n1 && !strings.Contains(n0, "%!") && !strings.Contains(n1, "%!")
}

// Nodes returns the device nodes of all the LED channels, indexed by
// device number.
func (led LED) Nodes() []string {
	nodes := make([]string, led.Channels)
	for i := range nodes {
		nodes[i] = fmt.Sprintf(led.Node, i)
	}
	return nodes
}
