package middleware

import (
	"context"

	"nodara-sdk/message"
)

// HandlerFunc performs one call. On the client it ends in the HTTP transport,
// on the development node it ends in the service dispatcher.
type HandlerFunc func(ctx context.Context, req *message.Request) (*message.Response, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so that the first one given runs outermost:
// Chain(A, B, C)(h) == A(B(C(h))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
