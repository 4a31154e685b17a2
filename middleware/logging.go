package middleware

import (
	"context"
	"slices"
	"time"

	"github.com/go-kit/kit/metrics"
	"go.uber.org/zap"

	"avtocod/logging"
	"avtocod/method"
)

// RequestLogging counts every dispatched method by name and logs the call
// before delegating. Methods named in ignore are neither counted nor logged.
// It never alters the outcome.
func RequestLogging(logger *zap.Logger, counter metrics.Counter, ignore ...string) Middleware {
	logger = logging.OrNop(logger)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (any, error) {
			var called []string
			for _, name := range names(m) {
				if slices.Contains(ignore, name) {
					continue
				}
				called = append(called, name)
				if counter != nil {
					counter.With("method", name).Add(1)
				}
			}
			if len(called) == 0 {
				return next(ctx, m)
			}

			logger.Debug("calling", zap.Strings("methods", called))
			start := time.Now()
			result, err := next(ctx, m)
			fields := []zap.Field{zap.Strings("methods", called), zap.Duration("duration", time.Since(start))}
			if err != nil {
				logger.Info("call failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("call done", fields...)
			}
			return result, err
		}
	}
}
