package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"avtocod/apierr"
	"avtocod/logging"
	"avtocod/method"
)

// Retry repeats a dispatch that failed with a network error up to maxRetries
// times, doubling baseDelay between attempts. Other errors return at once.
func Retry(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	logger = logging.OrNop(logger)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (any, error) {
			result, err := next(ctx, m)
			for i := 0; i < maxRetries; i++ {
				if err == nil || !apierr.Is(err, apierr.ErrNetwork) {
					return result, err
				}
				delay := baseDelay * time.Duration(1<<i)
				logger.Warn("retrying",
					zap.String("method", m.Name()), zap.Int("attempt", i+1),
					zap.Duration("delay", delay), zap.Error(err))
				select {
				case <-ctx.Done():
					return nil, err
				case <-time.After(delay):
				}
				result, err = next(ctx, m)
			}
			return result, err
		}
	}
}
