package http

import (
	"net/http"

	"github.com/dkeye/Televisit/internal/adapters/notify"
	"github.com/dkeye/Televisit/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type videoHandler struct {
	provider core.VideoProvider
	notifier core.Notifier
}

func fail(c *gin.Context, msg string, err error) {
	log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "message": err.Error()})
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// POST /api/video/token
func (h *videoHandler) generateToken(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required,max=128"`
		RoomName string `json:"roomName" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identity and roomName are required"})
		return
	}
	tok, err := h.provider.IssueAccessToken(req.Identity, req.RoomName)
	if err != nil {
		fail(c, "Failed to generate token", err)
		return
	}
	respond(c, http.StatusOK, tok)
}

// POST /api/video/rooms
func (h *videoHandler) createRoom(c *gin.Context) {
	var req struct {
		RoomName string `json:"roomName" binding:"required,max=128"`
		Type     string `json:"type" binding:"omitempty,oneof=group peer-to-peer group-small go"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomName is required"})
		return
	}
	room, err := h.provider.CreateRoom(c.Request.Context(), req.RoomName, req.Type)
	if err != nil {
		fail(c, "Failed to create room", err)
		return
	}
	respond(c, http.StatusCreated, room)
}

// GET /api/video/rooms/:roomName
func (h *videoHandler) getRoom(c *gin.Context) {
	room, err := h.provider.GetRoom(c.Request.Context(), c.Param("roomName"))
	if err != nil {
		fail(c, "Failed to fetch room", err)
		return
	}
	respond(c, http.StatusOK, room)
}

// POST /api/video/rooms/:roomName/end
func (h *videoHandler) endRoom(c *gin.Context) {
	room, err := h.provider.EndRoom(c.Request.Context(), c.Param("roomName"))
	if err != nil {
		fail(c, "Failed to end room", err)
		return
	}
	respond(c, http.StatusOK, room)
}

// GET /api/video/rooms/:roomName/participants
func (h *videoHandler) listParticipants(c *gin.Context) {
	ps, err := h.provider.ListParticipants(c.Request.Context(), c.Param("roomName"))
	if err != nil {
		fail(c, "Failed to list participants", err)
		return
	}
	respond(c, http.StatusOK, ps)
}

// POST /api/video/rooms/:roomName/participants/:participantSid/disconnect
func (h *videoHandler) disconnectParticipant(c *gin.Context) {
	p, err := h.provider.DisconnectParticipant(c.Request.Context(), c.Param("roomName"), c.Param("participantSid"))
	if err != nil {
		fail(c, "Failed to disconnect participant", err)
		return
	}
	respond(c, http.StatusOK, p)
}

// POST /api/video/whatsapp/send
func (h *videoHandler) sendWhatsApp(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and message are required"})
		return
	}
	res, err := h.notifier.SendText(c.Request.Context(), notify.CleanPhone(req.Phone), req.Message)
	if err != nil || !res.Success {
		msg := res.Error
		if msg == "" && err != nil {
			msg = err.Error()
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("whatsapp send failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
		return
	}
	respond(c, http.StatusOK, gin.H{"id": res.ID})
}
