package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestRateLimitInterceptor(t *testing.T) {
	icpt := RateLimitInterceptor(0.001, 2)
	info := &grpc.UnaryServerInfo{FullMethod: "/qmatch.Matching/BestMatch"}

	calls := 0
	handler := func(context.Context, any) (any, error) {
		calls++
		return "ok", nil
	}

	for i := 0; i < 2; i++ {
		resp, err := icpt(context.Background(), nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	}

	_, err := icpt(context.Background(), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, 2, calls, "rejected calls never reach the handler")
}
