package http

import (
	"net/http"

	"github.com/dkeye/Televisit/internal/app/relay"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/gin-gonic/gin"
)

type reportHandler struct {
	relay *relay.Relay
}

// GET /api/telemedicine/sessions
func (h *reportHandler) activeSessions(c *gin.Context) {
	respond(c, http.StatusOK, h.relay.ActiveSessions())
}

// GET /api/telemedicine/sessions/:roomName
func (h *reportHandler) session(c *gin.Context) {
	sess, found := h.relay.Session(domain.RoomName(c.Param("roomName")))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": relay.MsgSessionNotFound})
		return
	}
	respond(c, http.StatusOK, sess)
}
