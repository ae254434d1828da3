package http

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

const invalidLinkMessage = "This link is invalid or has expired."

var ipv4Pattern = regexp.MustCompile(`^((25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$`)

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

type PrinterRequest struct {
	IPAddress    string `json:"ip_address" zog:"ip_address"`
	DepartmentID string `json:"department_id" zog:"department_id"`
}

var printerRequestSchema = z.Struct(z.Shape{
	"IPAddress":    z.String().Required().Match(ipv4Pattern),
	"DepartmentID": z.String().Optional(),
})

func (r PrinterRequest) departmentRef() *string {
	if r.DepartmentID == "" {
		return nil
	}
	id := r.DepartmentID
	return &id
}

type LimiterRequest struct {
	DepartmentID string  `json:"department_id" zog:"department_id"`
	Rate         float64 `json:"rate"`
	Burst        int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"DepartmentID": z.String().Optional(),
	"rate":         z.Float64().GTE(0).Required(),
	"burst":        z.Int().GTE(0).Required(),
})

type PrinterListResponse struct {
	Printers   []models.Printer `json:"printers"`
	LastUpdate *time.Time       `json:"last_update"`
}

func (rs *RestfulServer) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
	case errors.Is(err, db.ErrDuplicateIP):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger().Error("Inventory operation failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ListPrinters polls the scope before answering so the view reflects the
// fleet as of now. When the scope is rate limited the stored records are
// served as they are.
func (rs *RestfulServer) ListPrinters(c *gin.Context) {
	departmentID := strings.TrimSpace(c.Query("department_id"))
	ctx := c.Request.Context()

	if rs.CheckRefreshLimiter(departmentID) {
		if _, err := rs.Monitor.Poller.PollAll(ctx, departmentID); err != nil {
			logger().Error("Dashboard poll failed", zap.String("department_id", departmentID), zap.Error(err))
		}
	}

	printers, err := rs.Inventory.ListPrinters(ctx, departmentID)
	if err != nil {
		rs.storeError(c, err)
		return
	}
	lastUpdate, err := rs.Inventory.LastPollAt(ctx, departmentID)
	if err != nil {
		rs.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PrinterListResponse{Printers: printers, LastUpdate: lastUpdate})
}

func (rs *RestfulServer) Refresh(c *gin.Context) {
	departmentID := strings.TrimSpace(c.Query("department_id"))

	if !rs.CheckRefreshLimiter(departmentID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	report, err := rs.Monitor.Poller.PollAll(c.Request.Context(), departmentID)
	if err != nil {
		logger().Error("Refresh failed", zap.String("department_id", departmentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (rs *RestfulServer) CreatePrinter(c *gin.Context) {
	var req PrinterRequest
	if err := printerRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	p := &models.Printer{IPAddress: req.IPAddress, DepartmentID: req.departmentRef()}
	if err := rs.Inventory.CreatePrinter(c.Request.Context(), p); err != nil {
		rs.storeError(c, err)
		return
	}

	logger().Info("Printer registered", zap.String("printer_id", p.ID), zap.String("ip", p.IPAddress))
	c.JSON(http.StatusCreated, p)
}

func (rs *RestfulServer) GetPrinter(c *gin.Context) {
	p, err := rs.Inventory.GetPrinter(c.Request.Context(), c.Param("id"))
	if err != nil {
		rs.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.NewestFirst())
}

func (rs *RestfulServer) UpdatePrinter(c *gin.Context) {
	var req PrinterRequest
	if err := printerRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	id := c.Param("id")
	if err := rs.Inventory.UpdatePrinterIdentity(c.Request.Context(), id, req.IPAddress, req.departmentRef()); err != nil {
		rs.storeError(c, err)
		return
	}

	p, err := rs.Inventory.GetPrinter(c.Request.Context(), id)
	if err != nil {
		rs.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.NewestFirst())
}

func (rs *RestfulServer) DeletePrinter(c *gin.Context) {
	id := c.Param("id")
	if err := rs.Inventory.DeletePrinter(c.Request.Context(), id); err != nil {
		rs.storeError(c, err)
		return
	}

	if rs.Events != nil {
		if err := rs.Events.ClearState(c.Request.Context(), id); err != nil {
			logger().Warn("Failed to clear published state", zap.String("printer_id", id), zap.Error(err))
		}
	}

	c.Status(http.StatusNoContent)
}

// PublicPrinterDetail serves the deep link from an alert email. Every
// failure gets the same 403 so the caller learns nothing about why.
func (rs *RestfulServer) PublicPrinterDetail(c *gin.Context) {
	id := c.Param("id")

	printerID, err := rs.Links.Verify(c.Query("token"))
	if err != nil || printerID != id {
		logger().Info("Rejected printer detail link", zap.String("printer_id", id), zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"error": invalidLinkMessage})
		return
	}

	p, err := rs.Inventory.GetPrinter(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": invalidLinkMessage})
		return
	}
	c.JSON(http.StatusOK, p.NewestFirst())
}

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(req.DepartmentID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
