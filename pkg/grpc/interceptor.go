package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/printwatch-service/pkg/common"
)

// CreateRateLimitInterceptor limits the listed methods per refresh scope,
// taken from the request's department_id.
func (s *MonitorServer) CreateRateLimitInterceptor(limitedMethods []string) grpc.UnaryServerInterceptor {
	limited := common.Reducer(limitedMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if limited[info.FullMethod] {
			if r, ok := req.(*structpb.Struct); ok {
				if !s.CheckRefreshLimiter(stringField(r, "department_id")) {
					return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
				}
			}
		}

		return handler(ctx, req)
	}
}
