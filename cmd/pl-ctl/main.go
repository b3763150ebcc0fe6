// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pl-ctl is an interactive console to inspect and drive the
// peripherals implemented in the programmable logic.
//
// Usage: pl-ctl [OPTIONS]
//
// Example:
//
//	$> pl-ctl
//	pl> load sw
//	pl-ctl: loading "sw" from "/sd/bit/my_axi_sw.bit"...
//	pl-ctl: loading "sw" from "/sd/bit/my_axi_sw.bit"... [ok]
//	pl> sw
//	10000001
//	pl> led 0 50000
//	pl> led 0
//	50000
//	pl> quit
package main // import "github.com/go-lpc/pldiag/cmd/pl-ctl"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-lpc/pldiag"
	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("pl-ctl: ")
	log.SetFlags(0)

	var (
		fname   = flag.String("cfg", "", "path to a YAML configuration file")
		vers    = flag.Bool("version", false, "print version and exit")
		timeout = flag.Duration("timeout", 10*time.Second, "activation timeout (0: wait forever)")
		hist    = flag.String("history", defaultHistory(), "path to the history file")
	)

	flag.Parse()

	if *vers {
		pldiag.PrintVersion(os.Stdout, "pl-ctl")
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
	cfg.Timeout = *timeout

	sh := newShell(cfg, os.Stdout)
	err := sh.repl(*hist)
	if err != nil {
		log.Fatalf("could not run console: %+v", err)
	}
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pl-ctl_history")
}

func (sh *shell) repl(hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = term.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(hist)
			if err != nil {
				log.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, err = term.WriteHistory(f)
			if err != nil {
				log.Printf("could not save history: %+v", err)
			}
		}()
	}

	for {
		line, err := term.Prompt("pl> ")
		switch {
		case err == nil:
			// ok.
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := sh.exec(context.Background(), line)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %+v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (sh *shell) complete(line string) []string {
	var cmds []string
	for name := range sh.cmds {
		if strings.HasPrefix(name, line) {
			cmds = append(cmds, name)
		}
	}
	sort.Strings(cmds)
	return cmds
}

// newActivator creates the activator used by the console.
func newActivator(cfg config.Config, w io.Writer) *fabric.Activator {
	return fabric.NewActivator(
		cfg.Sink,
		fabric.WithLogger(log.New(w, "pl-ctl: ", 0)),
		fabric.WithPoll(cfg.Poll),
		fabric.WithTimeout(cfg.Timeout),
	)
}
