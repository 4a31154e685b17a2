package middleware

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"avtocod/apierr"
	"avtocod/auth"
	"avtocod/batch"
	"avtocod/logging"
	"avtocod/method"
)

// LoginFunc exchanges credentials for a new token.
type LoginFunc func(ctx context.Context, creds auth.Credentials) (string, error)

// Relogin retries a call once with a fresh token when the provider reports
// an expired session. For a batch only the items that failed with an expired
// session are sent again, as one batch, and their outcomes replace the old
// ones. A second expired session is returned as is.
func Relogin(provider auth.CredentialsProvider, login LoginFunc, logger *zap.Logger) Middleware {
	logger = logging.OrNop(logger)
	renew := func(ctx context.Context) (context.Context, error) {
		creds, err := provider(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "relogin: credentials")
		}
		token, err := login(ctx, creds)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "relogin")
		}
		return auth.WithToken(ctx, token), nil
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m method.Method) (any, error) {
			if m.Name() == (method.AuthLogin{}).Name() {
				return next(ctx, m)
			}

			result, err := next(ctx, m)
			if err == nil {
				return result, nil
			}

			var pf *batch.PartialFailure
			if errors.As(err, &pf) {
				return reloginBatch(ctx, next, pf, renew, logger)
			}
			if !apierr.Is(err, apierr.ErrSessionExpired) {
				return nil, err
			}

			logger.Info("session expired, logging in again", zap.String("method", m.Name()))
			ctx, lerr := renew(ctx)
			if lerr != nil {
				return nil, lerr
			}
			return next(ctx, m)
		}
	}
}

func reloginBatch(ctx context.Context, next HandlerFunc, pf *batch.PartialFailure,
	renew func(context.Context) (context.Context, error), logger *zap.Logger) (any, error) {
	var (
		idx     []int
		methods []method.Method
	)
	for i, it := range pf.Items {
		if it.Err != nil && apierr.Is(it.Err, apierr.ErrSessionExpired) {
			idx = append(idx, i)
			methods = append(methods, it.Method)
		}
	}
	if len(idx) == 0 {
		return nil, pf
	}

	logger.Info("session expired, logging in again",
		zap.Int("expired", len(idx)), zap.Int("batch", len(pf.Items)))
	ctx, err := renew(ctx)
	if err != nil {
		return nil, err
	}

	retried := make([]batch.Item, len(methods))
	result, err := next(ctx, batch.New(methods...))
	var again *batch.PartialFailure
	switch {
	case err == nil:
		items, ok := result.([]batch.Item)
		if !ok {
			return nil, apierr.Usage("relogin: batch handler returned %T", result)
		}
		retried = items
	case errors.As(err, &again):
		retried = again.Items
	default:
		for i, m := range methods {
			retried[i] = batch.Item{Method: m, Err: err}
		}
	}

	items := batch.Splice(pf.Items, idx, retried)
	if err := batch.Check(items); err != nil {
		return nil, err
	}
	return items, nil
}
