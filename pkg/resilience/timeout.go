package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
)

// WithTimeout bounds a call to a boundary dependency. When the limit passes
// first the error wraps both apperrors.ErrTimeout and
// context.DeadlineExceeded. Cancellation of the parent ctx is returned as is
// and never reported as a timeout.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return timedOut(name, timeout, err)
		}
		return err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return timedOut(name, timeout, context.DeadlineExceeded)
	}
}

func timedOut(name string, limit time.Duration, err error) error {
	return fmt.Errorf("%s exceeded %v: %w: %w", name, limit, apperrors.ErrTimeout, err)
}
