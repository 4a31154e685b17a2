package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"avtocod/apierr"
	"avtocod/method"
)

// RateLimit holds every dispatch until a token bucket of r requests per
// second and the given burst admits it. A batch takes one token, since it is
// one round trip.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (any, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, apierr.Networkf("rate limit: %v", err)
			}
			return next(ctx, m)
		}
	}
}
