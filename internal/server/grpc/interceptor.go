package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const deviceIDKey ctxKey = "deviceID"

// DeviceIDFromContext returns the caller's device id, or "" when the call
// carried none.
func DeviceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey).(string)
	return id
}

// deviceIDInterceptor copies the device id header into the context. Calls
// without one are served; the id only labels logs.
func (s *GRPCServer) deviceIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.DeviceIDHeaderName); len(values) > 0 && values[0] != "" {
			ctx = context.WithValue(ctx, deviceIDKey, values[0])
			ctx = logging.ContextWith(ctx, "device", values[0])
		}
	}
	return handler(ctx, req)
}

// observeInterceptor logs every call and records its latency.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	s.metrics.ObserveRPC(info.FullMethod, code.String(), elapsed)
	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"code", code.String(),
		"duration", elapsed)
	return resp, err
}
