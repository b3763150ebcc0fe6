// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rng

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/pldiag/config"
	"github.com/go-lpc/pldiag/fabric"
	"github.com/go-lpc/pldiag/internal/runctl"
)

// Server is a tdaq process streaming the samples of the random number
// generator on its output.
type Server struct {
	act  *fabric.Activator
	dev  fabric.Peripheral
	tick time.Duration

	mu  sync.Mutex
	f   *os.File
	rdr *Reader

	n    int
	data chan []byte
}

// NewServer creates a tdaq server for the generator described by cfg.
func NewServer(act *fabric.Activator, cfg config.Config) *Server {
	return &Server{
		act:  act,
		dev:  Peripheral(cfg),
		tick: cfg.RNG.Tick,
		data: make(chan []byte, 1024),
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := srv.act.EnsureActive(ctx.Ctx, srv.dev)
	if err != nil {
		ctx.Msg.Errorf("could not activate generator: %+v", err)
		return fmt.Errorf("could not activate generator: %w", err)
	}
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.open()
	if err != nil {
		ctx.Msg.Errorf("could not initialize generator: %+v", err)
		return fmt.Errorf("could not initialize generator: %w", err)
	}
	ctx.Msg.Infof("random number generator initialized.")
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.open()
	if err != nil {
		ctx.Msg.Errorf("could not reset generator: %+v", err)
		return fmt.Errorf("could not reset generator: %w", err)
	}
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.rdr == nil {
		return fmt.Errorf("generator not initialized")
	}
	srv.n = 0
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	srv.mu.Lock()
	n := srv.n
	srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.close()
}

// Output sends one sample per frame, as a little-endian uint16.
func (srv *Server) Output(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Loop reads samples at a fixed rate and queues them for the output.
// Samples are dropped when the output lags behind.
func (srv *Server) Loop(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		raw, err := srv.next()
		if err != nil {
			ctx.Msg.Errorf("could not read sample: %+v", err)
			return fmt.Errorf("could not read sample: %w", err)
		}

		select {
		case srv.data <- raw:
			srv.mu.Lock()
			srv.n++
			srv.mu.Unlock()
		default:
		}

		err = runctl.Sleep(ctx.Ctx, srv.tick)
		if err != nil {
			// run stopped.
			return nil
		}
	}
}

// next reads a sample and encodes it with the TDAQ wire protocol.
func (srv *Server) next() ([]byte, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.rdr == nil {
		return nil, fmt.Errorf("generator not initialized")
	}

	v, err := srv.rdr.Next()
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU16(v)
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("rng: could not encode sample: %w", err)
	}
	return buf.Bytes(), nil
}

// open arms the generator and opens it for reading.
func (srv *Server) open() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	err := srv.close()
	if err != nil {
		return err
	}

	node := srv.dev.Nodes[0]
	err = Arm(node, ArmPayload)
	if err != nil {
		return err
	}

	f, err := os.Open(node)
	if err != nil {
		return fmt.Errorf("rng: could not open generator: %w", err)
	}
	srv.f = f
	srv.rdr = NewReader(f, 0)
	srv.n = 0
	return nil
}

func (srv *Server) close() error {
	if srv.f == nil {
		return nil
	}
	err := srv.f.Close()
	srv.f = nil
	srv.rdr = nil
	if err != nil {
		return fmt.Errorf("rng: could not close generator: %w", err)
	}
	return nil
}
