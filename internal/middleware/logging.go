package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/metrics"
)

// LoggingInterceptor logs one line per RPC and counts it by procedure and
// code. Caller mistakes log at warn, server-side failures at error.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if pre-auth

			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", procedure),
				slog.String("user_id", userID),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if err == nil {
				metrics.RPCRequestsTotal.WithLabelValues(procedure, "ok").Inc()
				logger.LogAttrs(ctx, slog.LevelInfo, "RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			metrics.RPCRequestsTotal.WithLabelValues(procedure, code.String()).Inc()
			attrs = append(attrs, slog.String("code", code.String()), slog.Any("error", err))
			logger.LogAttrs(ctx, levelFor(code), "RPC error", attrs...)
			return resp, err
		}
	}
}

func levelFor(code connect.Code) slog.Level {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeAlreadyExists,
		connect.CodeUnauthenticated, connect.CodePermissionDenied, connect.CodeCanceled:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
