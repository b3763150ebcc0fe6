// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timer reads and sets the period of the AXI timer peripheral.
//
// The timer runs at 100MHz. Periods are expressed in clock ticks.
package timer // import "github.com/go-lpc/pldiag/timer"

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinPeriod is the smallest period accepted by the timer.
// Writing a smaller period stops the timer.
const MinPeriod = 100000

// Period reads the current period of the timer.
func Period(node string) (uint32, error) {
	raw, err := os.ReadFile(node)
	if err != nil {
		return 0, fmt.Errorf("timer: could not read period: %w", err)
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("timer: could not decode period from %q: %w", node, err)
	}
	return uint32(v), nil
}

// SetPeriod resets the timer with the period v and reports whether the
// timer was stopped instead, because v is below MinPeriod.
func SetPeriod(node string, v uint32) (stopped bool, err error) {
	err = os.WriteFile(node, []byte(strconv.FormatUint(uint64(v), 10)), 0644)
	if err != nil {
		return false, fmt.Errorf("timer: could not write period: %w", err)
	}
	return v < MinPeriod, nil
}
