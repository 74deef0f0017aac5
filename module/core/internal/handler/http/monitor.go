package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type locationMonitor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Snapshot() domain.MonitorSnapshot
}

type permissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

type MonitorHandler struct {
	monitor     locationMonitor
	permissions permissionRequester
}

func NewMonitorHandler(monitor locationMonitor, permissions permissionRequester) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, permissions: permissions}
}

func (h *MonitorHandler) Register(r *gin.RouterGroup) {
	r.GET("/monitor", h.Status)
	r.POST("/monitor/start", h.Start)
	r.POST("/monitor/stop", h.Stop)
	r.POST("/notifications/permission", h.RequestPermission)
}

func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Snapshot())
}

func (h *MonitorHandler) Start(c *gin.Context) {
	if err := h.monitor.Start(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrNoLocationCapability) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "location is not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start monitoring"})
		return
	}

	c.JSON(http.StatusOK, h.monitor.Snapshot())
}

func (h *MonitorHandler) Stop(c *gin.Context) {
	h.monitor.Stop(c.Request.Context())
	c.JSON(http.StatusOK, h.monitor.Snapshot())
}

func (h *MonitorHandler) RequestPermission(c *gin.Context) {
	granted, err := h.permissions.RequestPermission(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "permission prompt not answered"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"granted": granted})
}
