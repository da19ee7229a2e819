//go:build !mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// NanoTime returns a monotonic timestamp in nanoseconds. The `mono` build
// tag swaps this portable fallback for a direct runtime.nanotime linkname
// (see fast_nanotime.go); both satisfy the same contract: a non-wall-clock,
// ever-increasing counter suitable for measuring elapsed time.
func NanoTime() int64 { return int64(time.Since(start)) }

// start anchors NanoTime; time.Since reads its monotonic clock.
var start = time.Now()
