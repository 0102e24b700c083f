package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"SafeTrail/pkg/response"
)

// HealthCheck reports process and database liveness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Status is the operational snapshot consumed by dashboards: live
// sessions, in-flight SOS, fleet state, and host usage.
func (h *Handlers) Status(c *gin.Context) {
	stats := h.registry.Stats()

	system := gin.H{}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		system["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_percent"] = vm.UsedPercent
	}

	response.Success(c, "status", gin.H{
		"uptime":     time.Since(h.startTime).String(),
		"stats":      stats,
		"sessions":   h.registry.Snapshot(),
		"active_sos": h.sos.Active(),
		"fleet":      h.fleet.Snapshot(),
		"system":     system,
	})
}
