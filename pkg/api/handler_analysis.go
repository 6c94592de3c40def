package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mondrian-project/mondrian/pkg/models"
)

// analysisHandler handles GET /analysis/{id}: the final rendered output
// (spec.md §6 "HTML (status 202 if not done; 404 if unknown)"). Rendering
// the critique text into HTML markup is an out-of-scope collaborator
// (spec.md §1); this handler serves the stored rendered_output text
// as-is with an HTML content type.
func (s *Server) analysisHandler(c *gin.Context) {
	job, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if job.Status == models.StatusError {
		c.Status(http.StatusNotFound)
		return
	}
	if job.Status != models.StatusDone {
		c.Status(http.StatusAccepted)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(job.RenderedOutput))
}
