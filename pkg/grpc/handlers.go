package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameGrpcServer)
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func numberField(s *structpb.Struct, name string) (float64, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

// toStruct goes through JSON so responses carry the same field names as the
// REST surface.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func validatePrinterID(printerID *string) z.ZogIssueList {
	var printerIDValidator = z.String().Min(1).Required()
	return printerIDValidator.Validate(printerID)
}

func (s *MonitorServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	departmentID := stringField(req, "department_id")

	report, err := s.Monitor.Poller.PollAll(ctx, departmentID)
	if err != nil {
		logger().Error("Refresh failed", zap.String("department_id", departmentID), zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	return toStruct(report)
}

func (s *MonitorServer) GetPrinter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	printerID := stringField(req, "printer_id")
	if err := validatePrinterID(&printerID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	p, err := s.Inventory.GetPrinter(ctx, printerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, status.Errorf(codes.NotFound, "printer %s not found", printerID)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return toStruct(p.NewestFirst())
}

func (s *MonitorServer) SetLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	scopeRate, ok := numberField(req, "rate")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "validation error: rate is required")
	}
	if err := z.Float64().GTE(0).Validate(&scopeRate); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	burst, ok := numberField(req, "burst")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "validation error: burst is required")
	}
	scopeBurst := int(burst)
	if err := z.Int().GTE(0).Validate(&scopeBurst); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", err)
	}

	if s.RateLimiterStore == nil {
		return toStruct(map[string]any{"success": false, "message": "RateLimiterStore is not used. No effect."})
	}

	departmentID := stringField(req, "department_id")
	s.RateLimiterStore.SetLimiter(monitor.RefreshScopeKey(departmentID), rate.Limit(scopeRate), scopeBurst)

	return toStruct(map[string]any{
		"success": true,
		"message": fmt.Sprintf("limiter for %s set", monitor.RefreshScopeKey(departmentID)),
	})
}
