// Package nlog provides a minimal buffer-free structured logger: severity
// tagging, timestamping, and call-site annotation, writing directly to
// stdout/stderr.
/*
 * Copyright (c) 2023-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChars = "IWE"

var mw sync.Mutex

// main function
func log(sev severity, depth int, format string, args ...any) {
	var b strings.Builder
	formatHdr(sev, depth+1, &b)
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	mw.Lock()
	defer mw.Unlock()
	if sev >= sevWarn {
		os.Stderr.WriteString(b.String())
		return
	}
	os.Stdout.WriteString(b.String())
}

func formatHdr(s severity, depth int, b *strings.Builder) {
	_, fn, ln, ok := runtime.Caller(2 + depth)
	b.WriteByte(sevChars[s])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if !ok {
		return
	}
	if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
		fn = fn[idx+1:]
	}
	b.WriteString(fn)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(ln))
	b.WriteByte(' ')
}
