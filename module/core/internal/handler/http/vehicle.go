package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

type positionService interface {
	Latest(ctx context.Context, vehicleID string) (*domain.PositionSample, error)
	History(ctx context.Context, query *domain.HistoryQuery) ([]domain.PositionSample, error)
}

type fleetRegistry interface {
	Vehicles(ctx context.Context) ([]domain.Vehicle, error)
}

type VehicleHandler struct {
	positions positionService
	registry  fleetRegistry
}

func NewVehicleHandler(positions positionService, registry fleetRegistry) *VehicleHandler {
	return &VehicleHandler{positions: positions, registry: registry}
}

func (h *VehicleHandler) Register(r *gin.RouterGroup) {
	r.GET("/vehicles", h.GetAllVehicles)
	r.GET("/vehicles/:vehicle_id/location", h.GetLatestLocation)
	r.GET("/vehicles/:vehicle_id/history", RequireRole(domain.RoleAdmin), h.GetHistory)
}

func (h *VehicleHandler) GetAllVehicles(c *gin.Context) {
	vehicles, err := h.registry.Vehicles(c.Request.Context())
	if err != nil {
		log.Printf("list vehicles: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch vehicles"})
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

func (h *VehicleHandler) GetLatestLocation(c *gin.Context) {
	vehicleID, ok := vehicleParam(c)
	if !ok {
		return
	}

	s, err := h.positions.Latest(c.Request.Context(), vehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location for vehicle"})
		return
	}
	if err != nil {
		log.Printf("latest location %s: %v", vehicleID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch location"})
		return
	}

	c.JSON(http.StatusOK, domain.NewPositionMessage(*s, false))
}

func (h *VehicleHandler) GetHistory(c *gin.Context) {
	vehicleID, ok := vehicleParam(c)
	if !ok {
		return
	}

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
	if end < start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}

	query := &domain.HistoryQuery{
		VehicleID: vehicleID,
		Start:     time.Unix(start, 0),
		End:       time.Unix(end, 0),
	}

	samples, err := h.positions.History(c.Request.Context(), query)
	if err != nil {
		log.Printf("history %s: %v", vehicleID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]domain.PositionMessage, len(samples))
	for i, s := range samples {
		results[i] = domain.NewPositionMessage(s, false)
	}
	c.JSON(http.StatusOK, results)
}

func vehicleParam(c *gin.Context) (string, bool) {
	vehicleID := c.Param("vehicle_id")
	if _, err := uuid.Parse(vehicleID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_id"})
		return "", false
	}
	return vehicleID, true
}
