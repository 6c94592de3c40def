package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mondrian-project/mondrian/pkg/version"
)

// healthHandler handles GET /health (spec.md §6 "Service-up check").
func (s *Server) healthHandler(c *gin.Context) {
	resp := healthResponse{Status: "healthy", Version: version.Full()}

	if s.workerPool != nil {
		poolHealth := s.workerPool.Health()
		resp.WorkerPool = poolHealth
		if !poolHealth.IsHealthy {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
