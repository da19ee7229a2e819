// Package messaging exposes Facade: the per-process entry point that owns
// the sender cache, the notification handler, and one receiver per
// configured plane, wiring them together exactly in the order spec §4.7
// requires.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package messaging

import (
	"fmt"
	"time"

	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/mpass/nbsender"
)

// Config mirrors the configuration surface of spec §6 field-for-field.
// Parsing a configuration file is explicitly out of scope; Config is filled
// in by the caller (or, in cmd/lolademo, by flag-parsed command-line
// flags).
type Config struct {
	LocalPID mpass.PeerID

	ASILBCapable bool

	SenderQueueSize int

	ReceiverQueueSizeQM    int
	ReceiverQueueSizeASILB int

	AllowedUserIDsQM    map[uint32]struct{}
	AllowedUserIDsASILB map[uint32]struct{}

	SendRetryCount int
	SendRetryDelay time.Duration

	ConnectRetryDelay time.Duration
}

// Validate enforces the fatal-at-construction rules of spec §7: queue size
// above the hard cap, and any other invalid-configuration condition the
// core can detect ahead of time.
func (c Config) Validate() error {
	if c.SenderQueueSize <= 0 {
		return fmt.Errorf("messaging: sender_queue_size must be positive, got %d", c.SenderQueueSize)
	}
	if c.SenderQueueSize > nbsender.MaxQueueSize {
		return fmt.Errorf("messaging: sender_queue_size %d exceeds hard cap %d", c.SenderQueueSize, nbsender.MaxQueueSize)
	}
	if c.ReceiverQueueSizeQM < 0 || c.ReceiverQueueSizeASILB < 0 {
		return fmt.Errorf("messaging: receiver queue sizes must be non-negative")
	}
	if c.SendRetryCount <= 0 {
		return fmt.Errorf("messaging: send_retry_count must be positive, got %d", c.SendRetryCount)
	}
	return nil
}

// DefaultConfig returns the spec §6 defaults: 5 send retries, no
// inter-retry delay, a 5ms connect-retry delay, QM-only.
func DefaultConfig() Config {
	return Config{
		SenderQueueSize:        nbsender.MaxQueueSize,
		ReceiverQueueSizeQM:    16,
		ReceiverQueueSizeASILB: 16,
		SendRetryCount:         5,
		SendRetryDelay:         0,
		ConnectRetryDelay:      5 * time.Millisecond,
	}
}
