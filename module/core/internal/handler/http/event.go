package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type eventService interface {
	GetHistory(ctx context.Context, query *domain.EventQuery) ([]domain.TransitionEvent, error)
}

type eventResponse struct {
	ID           string                   `json:"id"`
	GeofenceID   string                   `json:"geofence_id"`
	GeofenceName string                   `json:"geofence_name"`
	Event        domain.GeofenceEventType `json:"event"`
	Latitude     float64                  `json:"latitude"`
	Longitude    float64                  `json:"longitude"`
	Distance     float64                  `json:"distance_meters"`
	Timestamp    int64                    `json:"timestamp"`
}

type EventHandler struct {
	eventSvc eventService
	deviceID string
}

func NewEventHandler(eventSvc eventService, deviceID string) *EventHandler {
	return &EventHandler{eventSvc: eventSvc, deviceID: deviceID}
}

func (h *EventHandler) Register(r *gin.RouterGroup) {
	r.GET("/events", h.GetHistory)
}

func (h *EventHandler) GetHistory(c *gin.Context) {
	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	deviceID := c.DefaultQuery("device_id", h.deviceID)

	query := &domain.EventQuery{
		DeviceID: deviceID,
		Start:    time.Unix(start, 0),
		End:      time.Unix(end, 0),
	}

	events, err := h.eventSvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	results := make([]eventResponse, len(events))
	for i, ev := range events {
		results[i] = toEventResponse(&ev)
	}
	c.JSON(http.StatusOK, results)
}

func toEventResponse(ev *domain.TransitionEvent) eventResponse {
	return eventResponse{
		ID:           ev.ID,
		GeofenceID:   ev.GeofenceID,
		GeofenceName: ev.GeofenceName,
		Event:        ev.Event,
		Latitude:     ev.Location.Lat,
		Longitude:    ev.Location.Lon,
		Distance:     ev.Distance,
		Timestamp:    ev.Timestamp.Unix(),
	}
}
