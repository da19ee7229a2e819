// Package cos provides common low-level types and utilities shared by the
// messaging core's packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"
	"syscall"

	"github.com/qorix-group/lola-messaging/cmn/nlog"
)

type (
	// Errs aggregates up to maxErrs distinct errors observed over the
	// lifetime of a batch operation (e.g. one remote fan-out round) without
	// allocating once the cap is hit.
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}
)

const maxErrs = 4

func (e *Errs) Add(err error) {
	Assert(err != nil)
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

// Assert is the always-on counterpart to debug.Assert: used where a failed
// invariant must abort even in release builds (see spec precondition-violation
// taxonomy).
func Assert(cond bool, args ...any) {
	if cond {
		return
	}
	if len(args) == 0 {
		panic("assertion failed")
	}
	panic(fmt.Sprintln(args...))
}

//
// retriable-connection-error helpers, consulted by mpass.Retry
//

func IsErrConnectionRefused(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) bool   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) bool        { return errors.Is(err, syscall.EPIPE) }

func IsRetriableConnErr(err error) bool {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

//
// abnormal termination
//

const fatalPrefix = "FATAL ERROR: "

// ExitLogf logs the formatted message at error severity and terminates the
// process. Reserved for invalid-configuration and precondition-violation
// conditions the spec calls out as fatal (§7).
func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	nlog.ErrorDepth(1, msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
