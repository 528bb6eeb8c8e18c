package server

import (
	"net/http"
	"strings"

	llmdomain "github.com/accordly/accordly/internal/llm/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GenerateLLM(c *gin.Context) {
	var req llmdomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Feature = strings.TrimSpace(req.Feature)
	req.ModelID = strings.TrimSpace(req.ModelID)
	req.UserID = strings.TrimSpace(req.UserID)

	resp, err := s.llmSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLLMProviders(c *gin.Context) {
	resp, err := s.llmSvc.ListProviders(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLLMModels(c *gin.Context) {
	providerID := strings.TrimSpace(c.Query("provider_id"))

	resp, err := s.llmSvc.ListModels(c.Request.Context(), providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
