package server

import (
	"net/http"
	"strconv"
	"strings"

	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListUsage(c *gin.Context) {
	var req usagedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.usageSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetUsageSummary(c *gin.Context) {
	days := 30
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("days", "invalid_days", "days must be a positive integer"))
			return
		}
		days = parsed
	}

	resp, err := s.usageSvc.Summary(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type attachUsageContractRequest struct {
	ContractID string `json:"contract_id"`
}

func (s *Server) AttachUsageContract(c *gin.Context) {
	recordID := strings.TrimSpace(c.Param("id"))

	var req attachUsageContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.usageSvc.AttachContract(c.Request.Context(), recordID, strings.TrimSpace(req.ContractID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "ok"}})
}
