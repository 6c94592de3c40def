package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// recentJobsOnSnapshot bounds how many recent jobs the supervisor
// snapshot endpoint returns (spec.md §4.E "last N jobs"); the endpoint
// takes no query parameter, so this is a fixed, conservative default.
const recentJobsOnSnapshot = 20

// supervisorHandler handles GET /supervisor: a read-only view of every
// managed child process and the most recent jobs (spec.md §4.E).
// Returns 404 when the server was wired without a supervisor.
func (s *Server) supervisorHandler(c *gin.Context) {
	if s.supervisor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "supervisor not configured"})
		return
	}

	snapshot, err := s.supervisor.Snapshot(c.Request.Context(), recentJobsOnSnapshot)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// supervisorResetHandler handles POST /supervisor/{name}/reset: the
// operator-triggered manual reset spec.md requires before a child that
// exhausted its restart budget is restarted again.
func (s *Server) supervisorResetHandler(c *gin.Context) {
	if s.supervisor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "supervisor not configured"})
		return
	}

	name := c.Param("name")
	if err := s.supervisor.ResetChild(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
