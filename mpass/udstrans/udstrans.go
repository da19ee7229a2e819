// Package udstrans is the production mpass transport: a net.UnixConn-backed
// sender/receiver pair over a Unix domain socket. TrySend on a full kernel
// socket buffer blocks, so HasNonBlockingGuarantee() is always false here —
// the complement to mpass/looptrans, satisfying the spec's requirement that
// at least one implementation be truthfully blocking.
//
// Peer authentication uses SO_PEERCRED (golang.org/x/sys/unix) to read the
// connecting uid at accept time and enforce the configured allowlist.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package udstrans

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// Sender dials a Unix domain socket at construction and writes frames to it
// directly; a full kernel send buffer blocks the caller, hence
// HasNonBlockingGuarantee() == false.
type Sender struct {
	conn      *net.UnixConn
	senderPID mpass.PeerID
}

// Dial connects to the Unix socket at endpointPath (derived from
// mpass.EndpointName, typically rooted under a well-known runtime
// directory by the caller) and returns a Sender tagging outgoing frames
// with senderPID. Dial itself makes a single attempt; the connect-retry
// loop mirroring the original OpenOrWaitForChannel (wait connectRetryDelay
// between attempts until success or the stop-token fires) lives one layer
// up, in sendercache.Cache.GetOrCreate, which is what every production
// mpass.SenderFactory is plugged into.
func Dial(endpointPath string, senderPID mpass.PeerID) (*Sender, error) {
	addr := &net.UnixAddr{Name: endpointPath, Net: "unix"}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "udstrans: dial %s", endpointPath)
	}
	return &Sender{conn: conn, senderPID: senderPID}, nil
}

func (s *Sender) HasNonBlockingGuarantee() bool { return false }

func (s *Sender) TrySend(f *frame.Short) error {
	buf := frame.EncodeShort(f)
	if _, err := s.conn.Write(buf); err != nil {
		return errors.Wrap(classifyWriteErr(err), "udstrans: write short frame")
	}
	return nil
}

func (s *Sender) TrySendMedium(f *frame.Medium) error {
	buf := frame.EncodeMedium(f)
	if _, err := s.conn.Write(buf); err != nil {
		return errors.Wrap(classifyWriteErr(err), "udstrans: write medium frame")
	}
	return nil
}

func (s *Sender) Close() error { return s.conn.Close() }

// classifyWriteErr maps a transient EAGAIN-style condition to
// mpass.ErrAgain so mpass.Retry recognizes it as retriable; other errors
// pass through unchanged.
func classifyWriteErr(err error) error {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return mpass.ErrAgain
	}
	return err
}

// Receiver listens on a Unix domain socket, checking SO_PEERCRED against
// the configured allowlist on each accepted connection, and dispatches
// frames read off accepted connections to registered callbacks across a
// bounded worker pool.
type Receiver struct {
	endpointPath string
	allowlist    mpass.Allowlist
	workers      int

	shortCbs  map[frame.Kind]mpass.ShortCallback
	mediumCbs map[frame.Kind]mpass.MediumCallback

	ln     *net.UnixListener
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver constructs a Receiver for endpointPath. workers must be >= 1.
func NewReceiver(endpointPath string, workers int, allowlist mpass.Allowlist) *Receiver {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Receiver{
		endpointPath: endpointPath, workers: workers, allowlist: allowlist,
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

// StartListening opens the Unix socket and spawns the worker pool's accept
// loops. A failure here is fatal to the caller per spec §4.3/§4.7 — the
// messaging facade terminates the process via nlog.Fatalf when this
// returns an error.
func (r *Receiver) StartListening() error {
	_ = os.Remove(r.endpointPath)
	addr := &net.UnixAddr{Name: r.endpointPath, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return errors.Wrapf(err, "udstrans: listen %s", r.endpointPath)
	}
	r.ln = ln

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.acceptLoop()
	}
	return nil
}

func (r *Receiver) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.AcceptUnix()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			nlog.Warningf("udstrans: accept: %v", err)
			continue
		}
		peerPID, ok := r.acceptPeer(conn)
		if !ok {
			conn.Close()
			continue
		}
		r.serve(conn, peerPID)
	}
}

// acceptPeer validates the connecting peer's uid via SO_PEERCRED against
// the configured allowlist and returns its authenticated pid.
func (r *Receiver) acceptPeer(conn *net.UnixConn) (mpass.PeerID, bool) {
	raw, err := conn.SyscallConn()
	if err != nil {
		nlog.Warningf("udstrans: SyscallConn: %v", err)
		return 0, false
	}
	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || credErr != nil {
		nlog.Warningf("udstrans: SO_PEERCRED: %v", err)
		return 0, false
	}
	if !r.allowlist.Allowed(cred.Uid) {
		nlog.Warningf("udstrans: rejecting connection from disallowed uid %d", cred.Uid)
		return 0, false
	}
	return mpass.PeerID(cred.Pid), true
}

func (r *Receiver) serve(conn *net.UnixConn, peerPID mpass.PeerID) {
	// Closing conn on stop unblocks a Read waiting on an idle peer.
	stop := context.AfterFunc(r.ctx, func() { conn.Close() })
	defer stop()
	buf := make([]byte, frame.SizeMedium)
	for {
		if r.ctx.Err() != nil {
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		r.dispatch(buf[:n], peerPID)
	}
}

// dispatch decodes buf and, on success, rejects any frame whose declared
// sender_pid disagrees with the transport-authenticated peerPID (spec
// §4.1/§4.3 frame-acceptance rule) before invoking the registered callback.
func (r *Receiver) dispatch(buf []byte, peerPID mpass.PeerID) {
	switch len(buf) {
	case frame.SizeShort:
		f, err := frame.DecodeShort(buf)
		if err != nil {
			nlog.Warningf("udstrans: discarding malformed short frame: %v", err)
			return
		}
		if mpass.PeerID(f.SenderPID) != peerPID {
			nlog.Warningf("udstrans: sender_pid %d disagrees with authenticated peer %d, discarding", f.SenderPID, peerPID)
			return
		}
		if cb, ok := r.shortCbs[f.Kind]; ok {
			cb(f)
		}
	case frame.SizeMedium:
		f, err := frame.DecodeMedium(buf)
		if err != nil {
			nlog.Warningf("udstrans: discarding malformed medium frame: %v", err)
			return
		}
		if mpass.PeerID(f.SenderPID) != peerPID {
			nlog.Warningf("udstrans: sender_pid %d disagrees with authenticated peer %d, discarding", f.SenderPID, peerPID)
			return
		}
		if cb, ok := r.mediumCbs[f.Kind]; ok {
			cb(f)
		}
	default:
		nlog.Warningf("udstrans: discarding frame of unexpected size %d", len(buf))
	}
}

// Stop closes the listener and every served connection, unblocking every
// accept/read loop, and waits for them to exit.
func (r *Receiver) Stop() {
	r.cancel()
	if r.ln != nil {
		r.ln.Close()
	}
	r.wg.Wait()
}
