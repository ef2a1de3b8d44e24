package middleware

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"nodara-sdk/message"
	"nodara-sdk/rpcerr"
)

// RetryMiddleware retries calls that failed with a NetworkError, up to
// maxRetries extra attempts with exponential backoff starting at baseDelay.
// RPC errors are answers from the node and are never retried. A negative
// maxRetries means no retries.
func RetryMiddleware(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = baseDelay
			exp.MaxElapsedTime = 0
			exp.Reset()
			policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)

			var resp *message.Response
			attempt := 0
			op := func() error {
				attempt++
				r, err := next(ctx, req)
				if err == nil {
					resp = r
					return nil
				}
				if !rpcerr.IsNetwork(err) || ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			notify := func(err error, wait time.Duration) {
				logger.Info("retrying rpc call",
					zap.String("method", req.Method),
					zap.Int("attempt", attempt),
					zap.Duration("backoff", wait),
					zap.Error(err))
			}

			if err := backoff.RetryNotify(op, policy, notify); err != nil {
				return nil, rpcerr.Network(err)
			}
			return resp, nil
		}
	}
}
