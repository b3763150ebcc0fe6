// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-lpc/pldiag/config"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("could not load default configuration: %+v", err)
	}
	if got, want := cfg.RNG.Node, config.Default().RNG.Node; got != want {
		t.Fatalf("invalid RNG node: got=%q, want=%q", got, want)
	}

	fname := filepath.Join(t.TempDir(), "cfg.yaml")
	err = os.WriteFile(fname, []byte("rng:\n  node: /tmp/rng0\n  tick: 1s\n"), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	cfg, err = loadConfig(fname)
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}
	if got, want := cfg.RNG.Node, "/tmp/rng0"; got != want {
		t.Fatalf("invalid RNG node: got=%q, want=%q", got, want)
	}
	if got, want := cfg.RNG.Tick, time.Second; got != want {
		t.Fatalf("invalid RNG tick: got=%v, want=%v", got, want)
	}
}
