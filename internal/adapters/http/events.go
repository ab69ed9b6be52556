package http

import (
	"net/http"

	"github.com/dkeye/Televisit/internal/app/presence"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/gin-gonic/gin"
)

type eventsHandler struct {
	tracker *presence.Tracker
}

type connectedRequest struct {
	RoomName string `json:"roomName" binding:"required,max=128"`
	Identity string `json:"identity" binding:"required,max=128"`
	Role     string `json:"role" binding:"required,role"`
}

type disconnectedRequest struct {
	RoomName string `json:"roomName" binding:"required,max=128"`
	Identity string `json:"identity" binding:"required,max=128"`
}

// POST /api/video/events/participant-connected
func (h *eventsHandler) participantConnected(c *gin.Context) {
	var req connectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomName, identity and role (doctor|patient) are required"})
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.tracker.TrackConnected(domain.RoomName(req.RoomName), req.Identity, role)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/video/events/participant-disconnected
func (h *eventsHandler) participantDisconnected(c *gin.Context) {
	var req disconnectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomName and identity are required"})
		return
	}
	h.tracker.TrackDisconnected(domain.RoomName(req.RoomName), req.Identity)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
