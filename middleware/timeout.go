package middleware

import (
	"context"
	"time"

	"avtocod/apierr"
	"avtocod/method"
)

type outcome struct {
	result any
	err    error
}

// Timeout bounds every dispatch by d. The result of a call that finishes
// after the deadline is discarded.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			done := make(chan outcome, 1)
			go func() {
				result, err := next(ctx, m)
				done <- outcome{result, err}
			}()

			select {
			case o := <-done:
				return o.result, o.err
			case <-ctx.Done():
				return nil, apierr.Networkf("%s: request timed out after %s", m.Name(), d)
			}
		}
	}
}
