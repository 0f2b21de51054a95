package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
	"github.com/hazardwatch/go-hazard-zones/internal/push"
	"github.com/hazardwatch/go-hazard-zones/internal/repository"
)

type Handler struct {
	devices      repository.DeviceStore
	positions    repository.UserPositionStore
	tokens       repository.TokenStore
	broadcaster  *push.Broadcaster
	searchRadius float64
}

func NewHandler(devices repository.DeviceStore, positions repository.UserPositionStore, tokens repository.TokenStore, broadcaster *push.Broadcaster, searchRadius float64) *Handler {
	return &Handler{
		devices:      devices,
		positions:    positions,
		tokens:       tokens,
		broadcaster:  broadcaster,
		searchRadius: searchRadius,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/devices/search", h.searchDevices)
	r.POST("/api/devices", h.upsertDevice)
	r.POST("/api/positions", h.updatePosition)
	r.POST("/api/tokens", h.registerToken)
	r.GET("/api/stream", h.stream)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) searchDevices(c *gin.Context) {
	center, ok := parseCoordinate(c.Query("lat"), c.Query("lon"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat/lon"})
		return
	}

	devices, err := h.devices.SearchDevices(c.Request.Context(), center, h.searchRadius)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search devices"})
		return
	}
	if devices == nil {
		devices = []models.HazardDevice{}
	}

	c.JSON(http.StatusOK, devices)
}

func (h *Handler) upsertDevice(c *gin.Context) {
	var device models.HazardDevice
	if err := c.ShouldBindJSON(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device payload"})
		return
	}
	if err := device.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.devices.UpsertDevice(c.Request.Context(), &device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store device"})
		return
	}

	c.JSON(http.StatusOK, device)
}

type positionRequest struct {
	UserID string  `json:"userId" binding:"required"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
}

func (h *Handler) updatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position payload"})
		return
	}
	coord := geo.Coordinate{Latitude: req.Lat, Longitude: req.Lon}
	if err := coord.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.positions.UpsertPosition(c.Request.Context(), req.UserID, coord); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store position"})
		return
	}

	c.Status(http.StatusNoContent)
}

type tokenRequest struct {
	UserID string `json:"userId" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

func (h *Handler) registerToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token payload"})
		return
	}

	if err := h.tokens.RegisterToken(c.Request.Context(), req.UserID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

// stream serves push notifications to one client over SSE. It is the
// in-process stand-in for a real push transport.
func (h *Handler) stream(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	id, ch := h.broadcaster.Subscribe(userID)
	defer h.broadcaster.Unsubscribe(userID, id)

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseCoordinate(latStr, lonStr string) (geo.Coordinate, bool) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return geo.Coordinate{}, false
	}
	coord := geo.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, false
	}
	return coord, true
}
