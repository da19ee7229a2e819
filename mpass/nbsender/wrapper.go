// Package nbsender wraps any mpass.Sender with a bounded FIFO queue and a
// single lazily-started drain goroutine, producing a sender whose TrySend
// never blocks the caller for longer than a bounded queue-insertion time.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nbsender

import (
	"context"
	"sync"

	"github.com/qorix-group/lola-messaging/cmn/debug"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// MaxQueueSize is the hard cap on configured queue capacity (spec §4.4,
// §6: "rejected if > 100"). Constructing a Wrapper above this cap is a
// programming error and is fatal.
const MaxQueueSize = 100

// item is the tagged union of frame variants the queue carries.
type item struct {
	short  *frame.Short
	medium *frame.Medium
}

// Wrapper bounds a possibly-blocking mpass.Sender with a FIFO queue plus a
// dedicated drain task, always reporting HasNonBlockingGuarantee() == true.
type Wrapper struct {
	inner mpass.Sender

	mu    sync.Mutex
	queue []item
	cap   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// drainRunning is true while a drain goroutine owns the queue's
	// draining; guarded by mu alongside queue itself.
	drainRunning bool
	closed       bool
}

// Wrap constructs a Wrapper around inner with the given queue capacity.
// capacity above MaxQueueSize terminates the process: the spec treats this
// as a misconfiguration, not a recoverable condition.
func Wrap(inner mpass.Sender, capacity int) *Wrapper {
	debug.Assert(capacity > 0 && capacity <= MaxQueueSize, "nbsender: invalid queue capacity", capacity)
	if capacity <= 0 || capacity > MaxQueueSize {
		nlog.Fatalf("nbsender: configured queue size %d exceeds hard cap %d", capacity, MaxQueueSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Wrapper{inner: inner, cap: capacity, ctx: ctx, cancel: cancel}
}

// HasNonBlockingGuarantee always reports true: that is the entire point of
// this wrapper.
func (w *Wrapper) HasNonBlockingGuarantee() bool { return true }

// TrySend enqueues a copy of f. Returns mpass.ErrAgain if the queue is full
// or the wrapper has begun shutting down.
func (w *Wrapper) TrySend(f *frame.Short) error {
	cp := *f
	return w.enqueue(item{short: &cp})
}

// TrySendMedium enqueues a copy of f. Same contract as TrySend.
func (w *Wrapper) TrySendMedium(f *frame.Medium) error {
	cp := *f
	return w.enqueue(item{medium: &cp})
}

func (w *Wrapper) enqueue(it item) error {
	w.mu.Lock()
	if w.closed || len(w.queue) >= w.cap {
		w.mu.Unlock()
		return mpass.ErrAgain
	}
	w.queue = append(w.queue, it)
	needDrain := !w.drainRunning
	if needDrain {
		w.drainRunning = true
	}
	w.mu.Unlock()

	if needDrain {
		w.wg.Add(1)
		go w.drain()
	}
	return nil
}

// drain runs until the queue empties or cancellation is requested, then
// exits; a subsequent enqueue starts a fresh drain goroutine.
func (w *Wrapper) drain() {
	defer w.wg.Done()
	for {
		if w.ctx.Err() != nil {
			w.mu.Lock()
			w.drainRunning = false
			w.mu.Unlock()
			return
		}

		w.mu.Lock()
		if len(w.queue) == 0 {
			w.drainRunning = false
			w.mu.Unlock()
			return
		}
		front := w.queue[0]
		w.mu.Unlock()

		if err := w.send(front); err != nil {
			nlog.Warningf("nbsender: drain send failed: %v", err)
		}

		w.mu.Lock()
		// The front of the queue may only have grown a tail since we
		// released the lock; it is still at index 0.
		w.queue = w.queue[1:]
		w.mu.Unlock()
	}
}

func (w *Wrapper) send(it item) error {
	if it.short != nil {
		return w.inner.TrySend(it.short)
	}
	return w.inner.TrySendMedium(it.medium)
}

// Close cancels any in-flight drain task and waits for it to finish before
// releasing the wrapped sender, then closes it. Race-free: a drain started
// concurrently with Close either observes ctx.Err() on its next loop
// iteration or has already exited by the time Wait returns.
func (w *Wrapper) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
	w.wg.Wait()
	return w.inner.Close()
}
