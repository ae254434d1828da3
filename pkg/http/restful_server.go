package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

// Inventory is the printer registry the REST surface manages.
type Inventory interface {
	CreatePrinter(ctx context.Context, p *models.Printer) error
	UpdatePrinterIdentity(ctx context.Context, id, ip string, departmentID *string) error
	DeletePrinter(ctx context.Context, id string) error
	ListPrinters(ctx context.Context, departmentID string) ([]models.Printer, error)
	GetPrinter(ctx context.Context, id string) (*models.Printer, error)
	LastPollAt(ctx context.Context, departmentID string) (*time.Time, error)
}

type LinkVerifier interface {
	Verify(token string) (string, error)
}

// StateCleaner drops published state for a removed printer. Optional.
type StateCleaner interface {
	ClearState(ctx context.Context, printerID string) error
}

type RestfulServer struct {
	Server           *gin.Engine
	Monitor          *monitor.Monitor
	Inventory        Inventory
	Links            LinkVerifier
	Events           StateCleaner
	RateLimiterStore *monitor.RateLimiterStore
}

func (rs *RestfulServer) GetLimiter(key string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	}
	return rs.RateLimiterStore.GetLimiter(key)
}

func (rs *RestfulServer) CheckRefreshLimiter(departmentID string) bool {
	limiter := rs.GetLimiter(monitor.RefreshScopeKey(departmentID))
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(departmentID string, scopeRate float64, scopeBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(monitor.RefreshScopeKey(departmentID), rate.Limit(scopeRate), scopeBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	printers := rs.Server.Group("/printers")
	{
		printers.GET("", rs.ListPrinters)
		printers.POST("", rs.CreatePrinter)
		printers.POST("/refresh", rs.Refresh)
		printers.POST("/limiter", rs.PostLimiter)
		printers.GET("/:id", rs.GetPrinter)
		printers.GET("/:id/detail", rs.GetPrinter)
		printers.PUT("/:id", rs.UpdatePrinter)
		printers.DELETE("/:id", rs.DeletePrinter)
	}

	rs.Server.GET("/printer-detail/:id", rs.PublicPrinterDetail)
}
