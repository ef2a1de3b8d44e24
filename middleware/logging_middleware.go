package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nodara-sdk/message"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (*message.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.Int("params", len(req.Params)),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("rpc call failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			logger.Debug("rpc call", append(fields, zap.Int("status", resp.Status))...)
			return resp, nil
		}
	}
}
