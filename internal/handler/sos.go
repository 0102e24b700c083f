package handlers

import (
	"github.com/gin-gonic/gin"

	"SafeTrail/pkg/response"
)

// ActiveSOS lists the in-flight alerts.
func (h *Handlers) ActiveSOS(c *gin.Context) {
	response.Success(c, "active sos", h.sos.Active())
}

// SOSHistory lists resolved alerts, oldest first.
func (h *Handlers) SOSHistory(c *gin.Context) {
	response.Success(c, "sos history", h.sos.History())
}

// ResolveSOS force-resolves one alert from the admin surface.
func (h *Handlers) ResolveSOS(c *gin.Context) {
	id := c.Param("id")
	if !h.sos.Resolve(id) {
		response.Fail(c, "sos not active", gin.H{"id": id})
		return
	}
	response.Success(c, "sos resolved", gin.H{"id": id})
}

// CancelSOS aborts an alert that does not need a response.
func (h *Handlers) CancelSOS(c *gin.Context) {
	id := c.Param("id")
	if !h.sos.Cancel(id) {
		response.Fail(c, "sos not active", gin.H{"id": id})
		return
	}
	response.Success(c, "sos cancelled", gin.H{"id": id})
}
