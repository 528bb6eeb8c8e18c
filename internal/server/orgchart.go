package server

import (
	"net/http"

	orgchartdomain "github.com/accordly/accordly/internal/orgchart/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetOrgChart(c *gin.Context) {
	resp, err := s.orgchartSvc.GetChart(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PutOrgChart(c *gin.Context) {
	var req orgchartdomain.PutChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orgchartSvc.PutChart(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrgChartEntities(c *gin.Context) {
	resp, err := s.orgchartSvc.ListEntities(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
