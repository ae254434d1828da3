package grpc

import (
	"context"

	"golang.org/x/time/rate"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

type PrinterReader interface {
	GetPrinter(ctx context.Context, id string) (*models.Printer, error)
}

type MonitorServer struct {
	Monitor          *monitor.Monitor
	Inventory        PrinterReader
	RateLimiterStore *monitor.RateLimiterStore
}

func (s *MonitorServer) GetLimiter(key string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	}
	return s.RateLimiterStore.GetLimiter(key)
}

func (s *MonitorServer) CheckRefreshLimiter(departmentID string) bool {
	limiter := s.GetLimiter(monitor.RefreshScopeKey(departmentID))
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}
