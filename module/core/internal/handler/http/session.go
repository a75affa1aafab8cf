package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/service"
)

type sessionController interface {
	Start(ctx context.Context, vehicleID, operatorID string) (*service.Session, error)
	Session(vehicleID string) (*service.Session, bool)
	Sessions() []domain.SessionStatus
	StopVehicle(vehicleID string) bool
}

type startSessionRequest struct {
	VehicleID string `json:"vehicle_id" binding:"omitempty,uuid"`
}

type SessionHandler struct {
	sessions sessionController
}

func NewSessionHandler(sessions sessionController) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Register(r *gin.RouterGroup) {
	r.POST("/sessions", RequireRole(domain.RoleDriver), h.StartSession)
	r.GET("/sessions", RequireRole(domain.RoleAdmin), h.ListSessions)
	r.GET("/sessions/:vehicle_id", RequireRole(domain.RoleDriver, domain.RoleAdmin), h.GetSession)
	r.DELETE("/sessions/:vehicle_id", RequireRole(domain.RoleDriver, domain.RoleAdmin), h.StopSession)
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	id, _ := IdentityFrom(c)
	s, err := h.sessions.Start(c.Request.Context(), req.VehicleID, id.UserID)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, s.Status())
	case errors.Is(err, domain.ErrAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": "tracking already active for this vehicle"})
	case errors.Is(err, domain.ErrNotAssigned):
		c.JSON(http.StatusForbidden, gin.H{"error": "no active vehicle assigned to you"})
	case errors.Is(err, domain.ErrSensorFault):
		c.JSON(http.StatusBadGateway, gin.H{"error": "location sensor unavailable"})
	default:
		log.Printf("start session for %s: %v", id.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start tracking"})
	}
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Sessions())
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	vehicleID, ok := vehicleParam(c)
	if !ok {
		return
	}

	s, ok := h.sessions.Session(vehicleID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	st := s.Status()
	if !canManage(c, st) {
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another operator"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SessionHandler) StopSession(c *gin.Context) {
	vehicleID, ok := vehicleParam(c)
	if !ok {
		return
	}

	if s, ok := h.sessions.Session(vehicleID); ok {
		if !canManage(c, s.Status()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another operator"})
			return
		}
		h.sessions.StopVehicle(vehicleID)
	}
	c.Status(http.StatusNoContent)
}

func canManage(c *gin.Context, st domain.SessionStatus) bool {
	id, _ := IdentityFrom(c)
	return id.Role == domain.RoleAdmin || id.UserID == st.OperatorID
}
