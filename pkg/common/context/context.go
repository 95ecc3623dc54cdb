// Package context holds small helpers around the standard context package
// shared by the pool submission paths.
package context

import (
	"context"
	"errors"
)

// IsCanceled returns true if the context is done for any reason
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
