package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Signing routes are public; the token itself is the credential and the
// handlers never consult the org context.

func (s *Server) ViewSigningField(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	resp, err := s.contractSvc.MarkViewed(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type signFieldRequest struct {
	SignedData string `json:"signed_data"`
}

func (s *Server) SignSigningField(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	var req signFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.SignedData) == "" {
		AbortWithError(c, newValidationError("signed_data", "invalid_signed_data", "signed_data is required"))
		return
	}

	resp, err := s.contractSvc.SignField(c.Request.Context(), token, req.SignedData, c.ClientIP())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type declineSigningRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) DeclineSigning(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	var req declineSigningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.contractSvc.Decline(c.Request.Context(), token, strings.TrimSpace(req.Reason), c.ClientIP()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "declined"}})
}
