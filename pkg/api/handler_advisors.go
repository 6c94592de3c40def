package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listAdvisorsHandler handles GET /advisors: the advisor catalog.
func (s *Server) listAdvisorsHandler(c *gin.Context) {
	advisors, err := s.store.ListAdvisors(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	out := make([]advisorResponse, len(advisors))
	for i, adv := range advisors {
		out[i] = toAdvisorResponse(adv)
	}
	c.JSON(http.StatusOK, out)
}

// getAdvisorHandler handles GET /advisors/{id}.
func (s *Server) getAdvisorHandler(c *gin.Context) {
	adv, err := s.store.GetAdvisor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdvisorResponse(adv))
}
