// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runctl runs diagnostic sessions until they fail or the process
// is interrupted.
package runctl // import "github.com/go-lpc/pldiag/internal/runctl"

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run runs f until it returns or until a signal is received on stop.
// When stop is nil, Run listens for SIGINT and SIGTERM.
//
// A session interrupted by a signal is not an error.
func Run(ctx context.Context, stop chan os.Signal, f func(ctx context.Context) error) error {
	if stop == nil {
		stop = make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		grp         errgroup.Group
		interrupted = make(chan struct{})
	)
	grp.Go(func() error {
		defer cancel()
		return f(ctx)
	})
	grp.Go(func() error {
		select {
		case <-stop:
			close(interrupted)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	err := grp.Wait()
	select {
	case <-interrupted:
		if errors.Is(err, context.Canceled) {
			return nil
		}
	default:
	}
	return err
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
