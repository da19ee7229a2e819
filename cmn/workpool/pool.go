// Package workpool provides a small, explicit, non-global bounded worker
// pool used to dispatch local fan-out callbacks without ever letting the
// number of concurrently running goroutines grow unbounded.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/qorix-group/lola-messaging/cmn/debug"
)

// Pool is a bounded, cancelable goroutine pool. Unlike a raw errgroup.Group,
// a Pool survives the first task's error: workers here run user callbacks
// whose failure must never tear down the rest of the pool, so Submit never
// propagates an error to fellow tasks.
type Pool struct {
	g   *errgroup.Group
	ctx context.Context
}

// New creates a Pool bound to ctx with at most size concurrently running
// tasks. size must be >= 1.
func New(ctx context.Context, size int) *Pool {
	debug.Assert(size >= 1, "workpool: size must be >= 1")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)
	// Replace the group's derived, error-canceled context with the caller's
	// own: a single failing task must not cancel the pool's siblings, only
	// an explicit shutdown of ctx should.
	_ = gctx
	return &Pool{g: g, ctx: ctx}
}

// Submit enqueues fn to run on the pool, blocking until a free slot is
// available. The wait for a slot does not observe ctx: a canceled pool
// still blocks Submit until a running task returns. Submit itself never
// fails on fn's behalf.
func (p *Pool) Submit(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() { _ = p.g.Wait() }

// Done reports whether the pool's context has been canceled.
func (p *Pool) Done() <-chan struct{} { return p.ctx.Done() }
