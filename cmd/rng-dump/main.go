// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rng-dump prints the output of the hardware random number generator.
//
// The generator is loaded into the FPGA when its device node is missing,
// then armed. Each 16-bit sample is printed as a string of binary digits,
// least significant bit first.
//
// Usage: rng-dump [OPTIONS]
//
// Example:
//
//	$> rng-dump -n 3 -stats
//	rng-dump: random number generator initialized.
//	1000000010000000
//	0110100111010010
//	1101001010110001
//	samples: 3
//	[...]
package main // import "github.com/go-lpc/pldiag/cmd/rng-dump"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/pldiag"
	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/internal/runctl"
	"github.com/go-lpc/pldiag/rng"
)

func main() {
	log.SetPrefix("rng-dump: ")
	log.SetFlags(0)

	var (
		fname   = flag.String("cfg", "", "path to a YAML configuration file")
		vers    = flag.Bool("version", false, "print version and exit")
		timeout = flag.Duration("timeout", 0, "activation timeout (0: wait forever)")
		nevts   = flag.Int("n", 0, "number of samples to read (0: no limit)")
		retries = flag.Int("retries", 0, "number of retries to complete a short read")
		stats   = flag.Bool("stats", false, "print statistics of the samples")
		yoda    = flag.String("yoda", "", "path to a YODA file to store the distribution of samples")
	)

	flag.Parse()

	if *vers {
		pldiag.PrintVersion(os.Stdout, "rng-dump")
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

	opts := options{
		n:       *nevts,
		retries: *retries,
		stats:   *stats,
		yoda:    *yoda,
	}

	err := run(os.Stdout, cfg, opts, nil)
	if err != nil {
		log.Fatalf("could not dump random numbers: %+v", err)
	}
}

type options struct {
	n       int
	retries int
	stats   bool
	yoda    string
}

func run(w io.Writer, cfg config.Config, opts options, stop chan os.Signal) error {
	var (
		msg = log.New(w, "rng-dump: ", 0)
		act = fabric.NewActivator(
			cfg.Sink,
			fabric.WithLogger(msg),
			fabric.WithPoll(cfg.Poll),
			fabric.WithTimeout(cfg.Timeout),
		)
		st   = rng.NewStats()
		sess = rng.NewSession(
			act, cfg,
			rng.WithLogger(msg),
			rng.WithOutput(w),
			rng.WithSamples(opts.n),
			rng.WithRetries(opts.retries),
			rng.WithStats(st),
		)
	)

	err := runctl.Run(context.Background(), stop, sess.Run)
	if err != nil {
		return err
	}

	if opts.stats {
		err = st.Summary(w)
		if err != nil {
			return fmt.Errorf("could not write statistics: %w", err)
		}
	}

	if opts.yoda != "" {
		raw, err := st.MarshalYODA()
		if err != nil {
			return fmt.Errorf("could not encode samples distribution: %w", err)
		}
		err = os.WriteFile(opts.yoda, raw, 0644)
		if err != nil {
			return fmt.Errorf("could not write samples distribution: %w", err)
		}
	}

	return nil
}
