// Package looptrans is an in-process, channel-backed transport used
// throughout the test suite. It is the mpass implementation that
// truthfully reports HasNonBlockingGuarantee() == true, by dropping frames
// when its channel is full rather than blocking the caller.
//
// Grounded on the teacher's transport package's channel-based work-queue
// pipeline (a buffered channel plus a single draining goroutine).
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package looptrans

import (
	"context"
	"sync"

	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

type msg struct {
	short      *frame.Short
	medium     *frame.Medium
	senderUID  uint32
	senderPID  mpass.PeerID
}

// Hub is a process-wide (but never package-global — callers own one)
// registry mapping endpoint names to their inbound channel, modeling a
// shared "bus" the way multiple processes would share OS-level named
// endpoints.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan msg
}

// NewHub constructs an empty endpoint registry.
func NewHub() *Hub { return &Hub{subs: make(map[string]chan msg)} }

func (h *Hub) channel(endpoint string, bufSize int) chan msg {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[endpoint]
	if !ok {
		ch = make(chan msg, bufSize)
		h.subs[endpoint] = ch
	}
	return ch
}

// Sender is a looptrans-backed mpass.Sender: TrySend drops the frame (and
// reports mpass.ErrAgain) if the destination endpoint's channel is full.
type Sender struct {
	hub        *Hub
	endpoint   string
	senderUID  uint32
	senderPID  mpass.PeerID
	bufSize    int
}

// NewSender returns a Sender that delivers to endpoint on hub, tagging
// every frame with senderPID/senderUID so the receiving end's allowlist and
// sender-identity checks have something to validate against.
func NewSender(hub *Hub, endpoint string, senderPID mpass.PeerID, senderUID uint32, bufSize int) *Sender {
	return &Sender{hub: hub, endpoint: endpoint, senderPID: senderPID, senderUID: senderUID, bufSize: bufSize}
}

func (s *Sender) HasNonBlockingGuarantee() bool { return true }

func (s *Sender) TrySend(f *frame.Short) error {
	ch := s.hub.channel(s.endpoint, s.bufSize)
	cp := *f
	select {
	case ch <- msg{short: &cp, senderUID: s.senderUID, senderPID: s.senderPID}:
		return nil
	default:
		return mpass.ErrAgain
	}
}

func (s *Sender) TrySendMedium(f *frame.Medium) error {
	ch := s.hub.channel(s.endpoint, s.bufSize)
	cp := *f
	select {
	case ch <- msg{medium: &cp, senderUID: s.senderUID, senderPID: s.senderPID}:
		return nil
	default:
		return mpass.ErrAgain
	}
}

func (s *Sender) Close() error { return nil }

// Receiver is a looptrans-backed mpass.Receiver: its worker pool reads off
// the hub's channel for its own endpoint.
type Receiver struct {
	hub       *Hub
	endpoint  string
	bufSize   int
	allowlist mpass.Allowlist
	workers   int

	shortCbs  map[frame.Kind]mpass.ShortCallback
	mediumCbs map[frame.Kind]mpass.MediumCallback

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver constructs a Receiver listening for endpoint on hub. workers
// must be >= 1.
func NewReceiver(hub *Hub, endpoint string, bufSize, workers int, allowlist mpass.Allowlist) *Receiver {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Receiver{
		hub: hub, endpoint: endpoint, bufSize: bufSize, workers: workers, allowlist: allowlist,
		shortCbs:  make(map[frame.Kind]mpass.ShortCallback),
		mediumCbs: make(map[frame.Kind]mpass.MediumCallback),
		ctx:       ctx, cancel: cancel,
	}
}

func (r *Receiver) RegisterShort(kind frame.Kind, cb mpass.ShortCallback) error {
	r.shortCbs[kind] = cb
	return nil
}

func (r *Receiver) RegisterMedium(kind frame.Kind, cb mpass.MediumCallback) error {
	r.mediumCbs[kind] = cb
	return nil
}

func (r *Receiver) StartListening() error {
	ch := r.hub.channel(r.endpoint, r.bufSize)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ch)
	}
	return nil
}

func (r *Receiver) worker(ch chan msg) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-ch:
			if !r.allowlist.Allowed(m.senderUID) {
				nlog.Warningf("looptrans: rejecting frame from disallowed uid %d", m.senderUID)
				continue
			}
			r.dispatch(m)
		}
	}
}

func (r *Receiver) dispatch(m msg) {
	switch {
	case m.short != nil:
		if m.short.SenderPID != int32(m.senderPID) {
			nlog.Warningf("looptrans: sender_pid mismatch, discarding frame")
			return
		}
		if cb, ok := r.shortCbs[m.short.Kind]; ok {
			cb(*m.short)
		}
	case m.medium != nil:
		if m.medium.SenderPID != int32(m.senderPID) {
			nlog.Warningf("looptrans: sender_pid mismatch, discarding frame")
			return
		}
		if cb, ok := r.mediumCbs[m.medium.Kind]; ok {
			cb(*m.medium)
		}
	}
}

func (r *Receiver) Stop() {
	r.cancel()
	r.wg.Wait()
}
