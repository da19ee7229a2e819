// Package nlog provides a minimal buffer-free structured logger: severity
// tagging, timestamping, and call-site annotation, writing directly to
// stdout/stderr.
/*
 * Copyright (c) 2023-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import "os"

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }

// Fatalf logs at error severity and terminates the process. Reserved for the
// precondition violations the spec calls out as fatal (invalid config,
// capability mismatch, nil sender from a factory).
func Fatalf(format string, args ...any) {
	log(sevErr, 0, format, args...)
	os.Exit(1)
}
