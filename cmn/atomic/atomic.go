// Package atomic provides thin, named wrappers over sync/atomic so call
// sites read as method calls on a typed value rather than bare package
// functions operating on pointers.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package atomic

import "sync/atomic"

// Int64 is an int64 safe for concurrent use without further locking.
type Int64 struct{ v int64 }

func (x *Int64) Load() int64          { return atomic.LoadInt64(&x.v) }
func (x *Int64) Store(val int64)      { atomic.StoreInt64(&x.v, val) }
func (x *Int64) Add(delta int64) int64 { return atomic.AddInt64(&x.v, delta) }
func (x *Int64) Inc() int64            { return x.Add(1) }
func (x *Int64) Dec() int64            { return x.Add(-1) }
func (x *Int64) CAS(old, newv int64) bool {
	return atomic.CompareAndSwapInt64(&x.v, old, newv)
}

// Uint64 is a uint64 safe for concurrent use without further locking.
type Uint64 struct{ v uint64 }

func (x *Uint64) Load() uint64           { return atomic.LoadUint64(&x.v) }
func (x *Uint64) Store(val uint64)       { atomic.StoreUint64(&x.v, val) }
func (x *Uint64) Add(delta uint64) uint64 { return atomic.AddUint64(&x.v, delta) }
func (x *Uint64) Inc() uint64             { return x.Add(1) }
func (x *Uint64) CAS(old, newv uint64) bool {
	return atomic.CompareAndSwapUint64(&x.v, old, newv)
}

// Uint16 is a uint16 safe for concurrent use, backed by a uint32 word (the
// platform has no native 16-bit atomic instruction).
type Uint16 struct{ v uint32 }

func (x *Uint16) Load() uint16     { return uint16(atomic.LoadUint32(&x.v)) }
func (x *Uint16) Store(val uint16) { atomic.StoreUint32(&x.v, uint32(val)) }
func (x *Uint16) Add(delta int16) uint16 {
	return uint16(atomic.AddUint32(&x.v, uint32(int32(delta))))
}
func (x *Uint16) CAS(old, newv uint16) bool {
	return atomic.CompareAndSwapUint32(&x.v, uint32(old), uint32(newv))
}

// Bool is a bool safe for concurrent use without further locking.
type Bool struct{ v uint32 }

func (x *Bool) Load() bool { return atomic.LoadUint32(&x.v) != 0 }

func (x *Bool) Store(val bool) {
	if val {
		atomic.StoreUint32(&x.v, 1)
		return
	}
	atomic.StoreUint32(&x.v, 0)
}

// CAS compares-and-swaps the boolean, returning whether it succeeded.
func (x *Bool) CAS(old, newv bool) bool {
	var o, n uint32
	if old {
		o = 1
	}
	if newv {
		n = 1
	}
	return atomic.CompareAndSwapUint32(&x.v, o, n)
}
