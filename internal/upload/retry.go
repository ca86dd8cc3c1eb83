package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/sethvargo/go-retry"
)

// Policy is a linear backoff: the wait before retry n is n*BaseDelay.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: time.Second}

// Delay is the wait before the given retry, counted from 1.
func (p Policy) Delay(retryNum int) time.Duration {
	return time.Duration(retryNum) * p.BaseDelay
}

func (p Policy) backoff() retry.Backoff {
	n := 0
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return p.Delay(n), false
	})
	return retry.WithMaxRetries(uint64(max(p.MaxRetries, 0)), linear)
}

// Do calls fn until it succeeds, fails with a non-transient error or the
// policy is exhausted, so fn runs at most MaxRetries+1 times. attempt starts
// at 1. Cancelling ctx stops the loop with common.ErrCancelled.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var (
		result  T
		attempt int
	)
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		v, err := fn(ctx, attempt)
		if err != nil {
			if common.IsTransient(err) && ctx.Err() == nil {
				return retry.RetryableError(err)
			}
			return err
		}
		result = v
		return nil
	})
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) && !errors.Is(err, common.ErrCancelled) {
		return result, fmt.Errorf("%w: %v", common.ErrCancelled, err)
	}
	return result, err
}
