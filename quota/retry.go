// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quota

import (
	"context"
	"time"
)

// retryBackoff runs op up to attempts times, doubling the delay between
// tries starting from base. It returns the last error once attempts are
// exhausted or the context is done. A cell already at capacity is not an
// error and must not reach this path; only transient store failures are
// retried.
func retryBackoff(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(base << i):
		}
	}
	return err
}
