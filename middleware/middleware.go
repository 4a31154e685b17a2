// Package middleware wraps every dispatch of a method, single or batch,
// before it reaches the transport.
package middleware

import (
	"context"

	"avtocod/batch"
	"avtocod/method"
)

// HandlerFunc executes one method. For a *batch.Batch the result is
// []batch.Item and a failed item surfaces as *batch.PartialFailure.
type HandlerFunc func(ctx context.Context, m method.Method) (any, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so they run in registration order on the way in.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// names lists the method names carried by m, expanding batches.
func names(m method.Method) []string {
	b, ok := m.(*batch.Batch)
	if !ok {
		return []string{m.Name()}
	}
	out := make([]string, 0, b.Len())
	for _, inner := range b.Methods() {
		out = append(out, inner.Name())
	}
	return out
}
