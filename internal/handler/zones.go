package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SafeTrail/internal/fanout"
	"SafeTrail/internal/models"
	"SafeTrail/pkg/errors"
	"SafeTrail/pkg/response"
	"SafeTrail/pkg/ws"
)

func validCategory(category string) bool {
	return category == models.ZoneDanger || category == models.ZoneRed
}

// GetZones lists the configured zones of one category.
func (h *Handlers) GetZones(c *gin.Context) {
	category := c.Param("category")
	if !validCategory(category) {
		response.Fail(c, "unknown zone category", nil)
		return
	}
	response.Success(c, "zones", h.zones.List(category))
}

// CheckLocation evaluates a coordinate against the active zone set and
// returns the resulting alerts, localized for the requested language.
func (h *Handlers) CheckLocation(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		response.Fail(c, "invalid coordinates", nil)
		return
	}

	alerts := h.engine.Evaluate(models.Coordinate{Lat: lat, Lng: lng}, c.GetString("lang"))
	response.Success(c, "zone check", gin.H{"inside": len(alerts) > 0, "alerts": alerts})
}

// ReplaceZones swaps one category's zone set wholesale. Validation is
// all-or-nothing: any bad zone rejects the whole request and the
// previous set stays in force.
func (h *Handlers) ReplaceZones(c *gin.Context) {
	category := c.Param("category")
	if !validCategory(category) {
		response.Fail(c, "unknown zone category", nil)
		return
	}

	var zones []models.Zone
	if err := c.ShouldBindJSON(&zones); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}

	if err := h.zones.Replace(category, zones); err != nil {
		response.FailWithStatus(c, http.StatusBadRequest, errors.GetCode(err), err.Error())
		return
	}

	if h.pub != nil {
		h.pub.Publish(ws.EvtZonesUpdated, gin.H{
			"category": category, "zones": h.zones.List(category),
		}, fanout.ToAll())
	}
	response.Success(c, "zones replaced", gin.H{"category": category, "count": len(zones)})
}
