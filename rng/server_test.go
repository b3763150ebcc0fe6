// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rng

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pldiag/fabric"
)

func TestServerReadout(t *testing.T) {
	cfg := newTestConfig(t, 0, 0x1234, 0xffff)
	srv := NewServer(fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet())), cfg)

	_, err := srv.next()
	if err == nil {
		t.Fatalf("expected an error reading from an uninitialized generator")
	}

	err = srv.open()
	if err != nil {
		t.Fatalf("could not open generator: %+v", err)
	}

	// samples are sent little-endian, whatever the host byte order.
	for i, tc := range []struct {
		v   uint16
		raw []byte
	}{
		{0x0101, []byte{0x01, 0x01}},
		{0x1234, []byte{0x34, 0x12}},
		{0xffff, []byte{0xff, 0xff}},
	} {
		got, err := srv.next()
		if err != nil {
			t.Fatalf("could not read sample %d: %+v", i, err)
		}
		if !bytes.Equal(got, tc.raw) {
			t.Fatalf("invalid sample %d: got=%v, want=%v", i, got, tc.raw)
		}

		dec := tdaq.NewDecoder(bytes.NewReader(got))
		if got, want := dec.ReadU16(), tc.v; got != want {
			t.Fatalf("invalid decoded sample %d: got=0x%x, want=0x%x", i, got, want)
		}
	}

	// only samples queued for the output are counted.
	if got, want := srv.n, 0; got != want {
		t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
	}

	_, err = srv.next()
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrShortRead)
	}

	// reset re-arms the generator and restarts from the head of the device.
	err = srv.open()
	if err != nil {
		t.Fatalf("could not re-open generator: %+v", err)
	}
	got, err := srv.next()
	if err != nil {
		t.Fatalf("could not read sample: %+v", err)
	}
	if want := []byte{1, 1}; !bytes.Equal(got, want) {
		t.Fatalf("invalid sample: got=%v, want=%v", got, want)
	}

	srv.mu.Lock()
	err = srv.close()
	srv.mu.Unlock()
	if err != nil {
		t.Fatalf("could not close generator: %+v", err)
	}
	if srv.f != nil || srv.rdr != nil {
		t.Fatalf("generator still open")
	}

	srv.mu.Lock()
	err = srv.close()
	srv.mu.Unlock()
	if err != nil {
		t.Fatalf("could not close generator twice: %+v", err)
	}
}

func TestServerRun(t *testing.T) {
	cfg := newTestConfig(t, 0, 0x1234, 0xffff)
	cfg.RNG.Tick = 100 * time.Millisecond

	var (
		srv  = NewServer(fabric.NewActivator(cfg.Sink, fabric.WithLogger(quiet())), cfg)
		msg  = log.NewMsgStream("rng-srv", log.LvlError, io.Discard)
		ctx  = tdaq.Context{Ctx: context.Background(), Msg: msg}
		resp tdaq.Frame
		req  tdaq.Frame
	)

	err := srv.OnStart(ctx, &resp, req)
	if err == nil {
		t.Fatalf("expected an error starting an uninitialized generator")
	}

	for _, tc := range []struct {
		name string
		cmd  func(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error
	}{
		{"/config", srv.OnConfig},
		{"/init", srv.OnInit},
		{"/reset", srv.OnReset},
		{"/start", srv.OnStart},
	} {
		err := tc.cmd(ctx, &resp, req)
		if err != nil {
			t.Fatalf("could not run %s: %+v", tc.name, err)
		}
	}

	var (
		run, cancel = context.WithCancel(context.Background())
		done        = make(chan error, 1)
	)
	defer cancel()

	go func() {
		done <- srv.Loop(tdaq.Context{Ctx: run, Msg: msg})
	}()

	var frames [][]byte
	for i := 0; i < 3; i++ {
		var dst tdaq.Frame
		err := srv.Output(ctx, &dst)
		if err != nil {
			t.Fatalf("could not read frame %d: %+v", i, err)
		}
		frames = append(frames, dst.Body)
	}
	cancel()

	err = <-done
	if err != nil {
		t.Fatalf("could not run readout loop: %+v", err)
	}

	want := [][]byte{{0x01, 0x01}, {0x34, 0x12}, {0xff, 0xff}}
	for i := range want {
		if !bytes.Equal(frames[i], want[i]) {
			t.Fatalf("invalid frame %d: got=%v, want=%v", i, frames[i], want[i])
		}
	}

	// a canceled output sends an empty frame.
	{
		var dst tdaq.Frame
		err := srv.Output(tdaq.Context{Ctx: run, Msg: msg}, &dst)
		if err != nil {
			t.Fatalf("could not read frame: %+v", err)
		}
		if dst.Body != nil {
			t.Fatalf("invalid frame: got=%v, want=nil", dst.Body)
		}
	}

	err = srv.OnStop(ctx, &resp, req)
	if err != nil {
		t.Fatalf("could not run /stop: %+v", err)
	}
	srv.mu.Lock()
	n := srv.n
	srv.mu.Unlock()
	if got, want := n, 3; got != want {
		t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
	}

	err = srv.OnQuit(ctx, &resp, req)
	if err != nil {
		t.Fatalf("could not run /quit: %+v", err)
	}
	if srv.f != nil {
		t.Fatalf("generator still open after /quit")
	}
}
