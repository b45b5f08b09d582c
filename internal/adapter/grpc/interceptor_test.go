package grpc

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/investdash-backend/internal/adapter/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAuthInterceptor(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	validToken, err := tokens.Issue(42, "telegram-42")
	require.NoError(t, err)
	interceptor := AuthInterceptor(tokens, HealthMethods...)

	tests := []struct {
		name           string
		ctx            context.Context
		method         string
		handlerCalled  bool
		expectedUserID *int64
		expectedCode   codes.Code
		expectedErrMsg string
	}{
		{
			name: "Valid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", "Bearer "+validToken),
			),
			handlerCalled:  true,
			expectedUserID: int64Ptr(42),
			expectedCode:   codes.OK,
		},
		{
			name: "Invalid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", "Bearer wrong-token"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "invalid token",
		},
		{
			name: "Missing Bearer Scheme",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", validToken),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "invalid token",
		},
		{
			name:           "Missing Token",
			ctx:            context.Background(),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing metadata",
		},
		{
			name: "Missing Authorization Header",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("other-header", "value"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing authorization header",
		},
		{
			name:          "Health Check Is Public",
			ctx:           context.Background(),
			method:        "/grpc.health.v1.Health/Check",
			handlerCalled: true,
			expectedCode:  codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			var seenUserID *int64
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCalled = true
				seenUserID = auth.UserIDFromContext(ctx)
				return "success", nil
			}

			method := tt.method
			if method == "" {
				method = "/" + ServiceName + "/ListPositions"
			}
			info := &grpc.UnaryServerInfo{FullMethod: method}

			resp, err := interceptor(tt.ctx, "test-request", info, handler)

			assert.Equal(t, tt.handlerCalled, handlerCalled, "handler called status mismatch")

			if tt.expectedCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "success", resp)
				assert.Equal(t, tt.expectedUserID, seenUserID)
			} else {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok, "error should be a gRPC status")
				assert.Equal(t, tt.expectedCode, st.Code())
				assert.Contains(t, st.Message(), tt.expectedErrMsg)
			}
		})
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	interceptor := RateLimitInterceptor(rate.NewLimiter(rate.Every(time.Hour), 2))
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}

	for i := 0; i < 2; i++ {
		_, err := interceptor(context.Background(), nil, info, handler)
		require.NoError(t, err)
	}

	_, err := interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := RecoveryInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "boom")
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})

	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Contains(t, buf.String(), `"method":"/test.Service/Method"`)
	assert.Contains(t, buf.String(), `"code":"NotFound"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func int64Ptr(v int64) *int64 {
	return &v
}
