// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rng-srv starts a TDAQ server streaming the samples of the
// hardware random number generator on its /rng output.
//
// The generator is loaded on /config and armed on /init.
// The YAML configuration file can be set with $PLDIAG_CONFIG.
package main // import "github.com/go-lpc/pldiag/cmd/rng-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/pldiag"
	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/rng"
)

func main() {
	cmd := flags.New()
	pldiag.PrintVersion(os.Stdout, cmd.Args[0])

	cfg, err := loadConfig(os.Getenv("PLDIAG_CONFIG"))
	if err != nil {
		log.Fatalf("could not load configuration: %+v", err)
	}

	act := fabric.NewActivator(
		cfg.Sink,
		fabric.WithLogger(log.New(os.Stdout, cmd.Args[0]+": ", 0)),
		fabric.WithPoll(cfg.Poll),
		fabric.WithTimeout(cfg.Timeout),
	)
	dev := rng.NewServer(act, cfg)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/rng", dev.Output)

	srv.RunHandle(dev.Loop)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

func loadConfig(fname string) (config.Config, error) {
	if fname == "" {
		return config.Default(), nil
	}
	return config.Load(fname)
}
