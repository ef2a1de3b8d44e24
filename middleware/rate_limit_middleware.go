package middleware

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"nodara-sdk/message"
	"nodara-sdk/rpcerr"
)

// RateLimitMiddleware rejects calls beyond r per second (token bucket of size
// burst) with a 429 RPCError. The development node mounts it.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			if !limiter.Allow() {
				return nil, &rpcerr.RPCError{Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
			}
			return next(ctx, req)
		}
	}
}

// ThrottleMiddleware delays calls so that at most r per second leave the
// client. A call whose context ends while waiting fails with a NetworkError.
func ThrottleMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, rpcerr.Network(err)
			}
			return next(ctx, req)
		}
	}
}
