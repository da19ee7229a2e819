package mpass

import (
	"context"
	"time"

	"github.com/qorix-group/lola-messaging/cmn/cos"
	"github.com/qorix-group/lola-messaging/cmn/mono"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
)

// RetryConfig configures Retry's bounded-retry, stop-token-observing send
// loop. Zero value is the spec default: 5 attempts, no inter-retry delay.
type RetryConfig struct {
	// Count is the maximum number of try_send attempts. Default 5 when 0.
	Count int
	// Delay is the sleep between attempts. Default 0 (no sleep) when unset.
	Delay time.Duration
}

// Retry applies RetryConfig's bounded-retry policy to a single try_send
// call, short-circuited by ctx cancellation. It retries only on errors the
// transport layer marks retriable (mpass.ErrAgain or cos.IsRetriableConnErr);
// any other error is returned immediately without consuming further
// attempts, since it may be permanent.
func Retry(ctx context.Context, cfg RetryConfig, send func() error) error {
	count := cfg.Count
	if count <= 0 {
		count = 5
	}

	start := mono.NanoTime()
	var lastErr error
	for attempt := 0; attempt < count; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = send()
		if lastErr == nil {
			return nil
		}
		if lastErr != ErrAgain && !cos.IsRetriableConnErr(lastErr) {
			return lastErr
		}
		if attempt == count-1 {
			break
		}
		if cfg.Delay > 0 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	elapsed := time.Duration(mono.NanoTime() - start)
	nlog.Warningf("mpass: send failed after %d attempts (%s elapsed): %v", count, elapsed, lastErr)
	return lastErr
}
