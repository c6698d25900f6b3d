// Package poll implements the fixed-interval, attempt-capped loop used to
// wait on vendor-side long-running work (video operations, checkout sessions).
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the attempt cap is reached before the
// check reports done.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Func performs one check. Returning done stops the loop; a non-nil error
// stops it and is returned as is.
type Func func(ctx context.Context, attempt int) (done bool, err error)

// Until waits one interval, runs fn, and repeats until fn reports done,
// fn fails, ctx is canceled or maxAttempts checks have run. It returns the
// number of checks performed.
func Until(ctx context.Context, interval time.Duration, maxAttempts int, fn Func) (int, error) {
	if maxAttempts < 1 {
		return 0, fmt.Errorf("poll: max attempts must be positive, got %d", maxAttempts)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("poll: interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-ticker.C:
		}

		done, err := fn(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
	}
	return maxAttempts, ErrExhausted
}
