package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/groupcart/internal/auth"
	"github.com/mmynk/groupcart/internal/metrics"
)

func call(t *testing.T, interceptor connect.UnaryInterceptorFunc, header string) (string, error) {
	t.Helper()
	var seen string
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUserID(ctx)
		return connect.NewResponse(&emptypb.Empty{}), nil
	}
	req := connect.NewRequest(&emptypb.Empty{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := interceptor(next)(context.Background(), req)
	return seen, err
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", "groupcart", time.Hour)
	token, err := jwtManager.Generate("user-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantUser string
		wantCode connect.Code
	}{
		{name: "valid token", header: "Bearer " + token, wantUser: "user-1"},
		{name: "missing header", header: "", wantCode: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic " + token, wantCode: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer nope", wantCode: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := call(t, RequireAuth(jwtManager), tt.header)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("Expected %v, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if user != tt.wantUser {
				t.Errorf("Expected user %q, got %q", tt.wantUser, user)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", "groupcart", time.Hour)
	token, _ := jwtManager.Generate("user-1")

	user, err := call(t, OptionalAuth(jwtManager), "")
	if err != nil || user != "" {
		t.Errorf("Anonymous call: user=%q err=%v", user, err)
	}
	user, err = call(t, OptionalAuth(jwtManager), "Bearer garbage")
	if err != nil || user != "" {
		t.Errorf("Invalid token: user=%q err=%v", user, err)
	}
	user, err = call(t, OptionalAuth(jwtManager), "Bearer "+token)
	if err != nil || user != "user-1" {
		t.Errorf("Valid token: user=%q err=%v", user, err)
	}
}

func TestLoggingInterceptor_CountsCodes(t *testing.T) {
	m := metrics.New()
	interceptor := LoggingInterceptor(m)

	ok := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&emptypb.Empty{}), nil
	}
	fail := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("group not found"))
	}

	req := connect.NewRequest(&emptypb.Empty{})
	_, _ = interceptor(ok)(context.Background(), req)
	_, _ = interceptor(fail)(context.Background(), req)

	procedure := req.Spec().Procedure
	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(procedure, "ok")); got != 1 {
		t.Errorf("Expected 1 ok call, got %v", got)
	}
	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(procedure, "not_found")); got != 1 {
		t.Errorf("Expected 1 not_found call, got %v", got)
	}
}

func TestLoggingInterceptor_Levels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
	}{
		{"success", nil, "INFO", "RPC ok"},
		{"caller error", connect.NewError(connect.CodeFailedPrecondition, errors.New("group is full")), "INFO", "RPC failed_precondition"},
		{"dependency down", connect.NewError(connect.CodeUnavailable, errors.New("store unavailable")), "WARN", "RPC unavailable"},
		{"internal", connect.NewError(connect.CodeInternal, errors.New("boom")), "ERROR", "RPC internal"},
		{"plain error", errors.New("boom"), "ERROR", "RPC unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return connect.NewResponse(&emptypb.Empty{}), nil
			}
			ctx := WithUserID(context.Background(), "alice")
			_, err := LoggingInterceptor(nil)(next)(ctx, connect.NewRequest(&emptypb.Empty{}))
			if !errors.Is(err, tt.err) {
				t.Fatalf("error not passed through: %v", err)
			}

			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
			}
			if line["level"] != tt.wantLevel {
				t.Errorf("level: expected %s, got %v", tt.wantLevel, line["level"])
			}
			if line["msg"] != tt.wantMsg {
				t.Errorf("msg: expected %q, got %v", tt.wantMsg, line["msg"])
			}
			if line["user_id"] != "alice" {
				t.Errorf("user_id: expected alice, got %v", line["user_id"])
			}
		})
	}
}
