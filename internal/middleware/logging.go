package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcart/internal/metrics"
)

// codeOK labels successful calls in logs and metrics.
const codeOK = "ok"

// LoggingInterceptor returns a Connect interceptor that writes one log line per
// RPC and counts calls by procedure and result code. m may be nil.
//
// Rejections the caller caused (bad input, missing group, wrong state) are
// logged at info; only server-side failures reach warn or error.
func LoggingInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			code, level := codeOK, slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("procedure", procedure),
				slog.String("protocol", req.Peer().Protocol),
				slog.String("user_id", GetUserID(ctx)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				c := connect.CodeOf(err)
				code, level = c.String(), levelFor(c)
				attrs = append(attrs, slog.String("code", code), slog.Any("error", err))
			}
			slog.LogAttrs(ctx, level, "RPC "+code, attrs...)

			if m != nil {
				m.RPCRequests.WithLabelValues(procedure, code).Inc()
			}
			return resp, err
		}
	}
}

func levelFor(code connect.Code) slog.Level {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeAlreadyExists,
		connect.CodeFailedPrecondition, connect.CodePermissionDenied, connect.CodeUnauthenticated,
		connect.CodeCanceled:
		return slog.LevelInfo
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeResourceExhausted:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
