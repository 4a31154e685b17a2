package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/metrics"

	"avtocod/apierr"
	"avtocod/batch"
	"avtocod/method"
)

// Instrumenting records one request and one duration observation (seconds)
// per dispatch, labelled with the method name ("batch" for batches) and the
// error kind.
func Instrumenting(requests metrics.Counter, duration metrics.Histogram) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (result any, err error) {
			defer func(begin time.Time) {
				lvs := []string{"method", m.Name(), "error", errorKind(err)}
				requests.With(lvs...).Add(1)
				duration.With(lvs...).Observe(time.Since(begin).Seconds())
			}(time.Now())
			return next(ctx, m)
		}
	}
}

var kinds = []struct {
	err   error
	label string
}{
	{apierr.ErrInsufficientBalance, "insufficient_balance"},
	{apierr.ErrVehicleNotFound, "vehicle_not_found"},
	{apierr.ErrNotFound, "not_found"},
	{apierr.ErrSubscriptionRequired, "subscription_required"},
	{apierr.ErrRateLimited, "rate_limited"},
	{apierr.ErrAccountBanned, "account_banned"},
	{apierr.ErrInvalidRequest, "invalid_request"},
	{apierr.ErrInvalidArgument, "invalid_argument"},
	{apierr.ErrSessionExpired, "session_expired"},
	{apierr.ErrUnauthorized, "unauthorized"},
	{apierr.ErrInternal, "internal"},
	{apierr.ErrProtocol, "protocol"},
	{apierr.ErrNetwork, "network"},
	{apierr.ErrDecoding, "decoding"},
	{apierr.ErrUsage, "usage"},
	{apierr.ErrValidation, "validation"},
}

func errorKind(err error) string {
	if err == nil {
		return "none"
	}
	var pf *batch.PartialFailure
	if errors.As(err, &pf) {
		return "partial"
	}
	for _, k := range kinds {
		if apierr.Is(err, k.err) {
			return k.label
		}
	}
	return "other"
}
