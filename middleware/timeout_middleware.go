package middleware

import (
	"context"
	"fmt"
	"time"

	"nodara-sdk/message"
	"nodara-sdk/rpcerr"
)

// TimeOutMiddleware bounds a call to timeout. Handlers that ignore ctx are
// abandoned when the deadline passes.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp *message.Response
				err  error
			}
			done := make(chan result, 1)
			go func() {
				resp, err := next(ctx, req)
				done <- result{resp, err}
			}()

			select {
			case r := <-done:
				return r.resp, r.err
			case <-ctx.Done():
				return nil, &rpcerr.NetworkError{Err: fmt.Errorf("request timed out after %s: %w", timeout, ctx.Err())}
			}
		}
	}
}
