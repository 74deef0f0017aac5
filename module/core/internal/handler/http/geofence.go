package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type geofenceRegistry interface {
	AddGeofence(g domain.Geofence) error
	RemoveGeofence(id string)
	ClearGeofences()
	Geofence(id string) (domain.Geofence, error)
	Geofences() []domain.Geofence
}

type mallService interface {
	SyncGeofences(ctx context.Context, radiusMeters float64, refresh bool) (int, error)
	ListMalls(ctx context.Context) ([]domain.Mall, error)
}

type geofenceRequest struct {
	ID        string   `json:"id" binding:"required"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Radius    float64  `json:"radius_meters"`
}

type syncResponse struct {
	Created int `json:"created"`
	Total   int `json:"total"`
}

type GeofenceHandler struct {
	registry geofenceRegistry
	malls    mallService
}

func NewGeofenceHandler(registry geofenceRegistry, malls mallService) *GeofenceHandler {
	return &GeofenceHandler{registry: registry, malls: malls}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/geofences", h.ListGeofences)
	r.POST("/geofences", h.AddGeofence)
	r.DELETE("/geofences", h.ClearGeofences)
	r.POST("/geofences/sync", h.SyncFromMalls)
	r.GET("/geofences/:geofence_id", h.GetGeofence)
	r.DELETE("/geofences/:geofence_id", h.RemoveGeofence)
	r.GET("/malls", h.ListMalls)
}

func (h *GeofenceHandler) ListGeofences(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Geofences())
}

func (h *GeofenceHandler) GetGeofence(c *gin.Context) {
	g, err := h.registry.Geofence(c.Param("geofence_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
		return
	}

	c.JSON(http.StatusOK, g)
}

func (h *GeofenceHandler) AddGeofence(c *gin.Context) {
	var req geofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence body"})
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude must be between -90 and 90"})
		return
	}
	if *req.Longitude < -180 || *req.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "longitude must be between -180 and 180"})
		return
	}

	g := domain.Geofence{
		ID:     req.ID,
		Name:   req.Name,
		Center: domain.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude},
		Radius: req.Radius,
		Source: domain.SourceManual,
	}
	if err := h.registry.AddGeofence(g); err != nil {
		if errors.Is(err, domain.ErrInvalidGeofence) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius_meters must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add geofence"})
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (h *GeofenceHandler) RemoveGeofence(c *gin.Context) {
	h.registry.RemoveGeofence(c.Param("geofence_id"))
	c.Status(http.StatusNoContent)
}

func (h *GeofenceHandler) ClearGeofences(c *gin.Context) {
	h.registry.ClearGeofences()
	c.Status(http.StatusNoContent)
}

// SyncFromMalls rebuilds mall geofences. radius is optional; refresh=true
// bypasses the mall cache.
func (h *GeofenceHandler) SyncFromMalls(c *gin.Context) {
	var radius float64
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})
			return
		}
		radius = r
	}

	refresh := false
	if raw := c.Query("refresh"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refresh parameter"})
			return
		}
		refresh = b
	}

	created, err := h.malls.SyncGeofences(c.Request.Context(), radius, refresh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync geofences"})
		return
	}

	c.JSON(http.StatusOK, syncResponse{Created: created, Total: len(h.registry.Geofences())})
}

func (h *GeofenceHandler) ListMalls(c *gin.Context) {
	malls, err := h.malls.ListMalls(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch malls"})
		return
	}

	c.JSON(http.StatusOK, malls)
}
