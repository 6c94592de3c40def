package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusHandler handles GET /status/{id}: a full snapshot of the job
// (spec.md §6).
func (s *Server) statusHandler(c *gin.Context) {
	job, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
