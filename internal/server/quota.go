package server

import (
	"net/http"
	"strings"

	"github.com/accordly/accordly/internal/orgcontext"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) requireOrg(c *gin.Context) (snowflake.ID, bool) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org_id", "organization context is required"))
		return 0, false
	}
	return orgID, true
}

func (s *Server) GetCurrentQuota(c *gin.Context) {
	orgID, ok := s.requireOrg(c)
	if !ok {
		return
	}

	resp, err := s.quotaSvc.Snapshot(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResetQuota(c *gin.Context) {
	orgID, ok := s.requireOrg(c)
	if !ok {
		return
	}

	if err := s.quotaSvc.Reset(c.Request.Context(), orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.quotaSvc.Snapshot(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type suspendQuotaRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) SuspendQuota(c *gin.Context) {
	orgID, ok := s.requireOrg(c)
	if !ok {
		return
	}

	var req suspendQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.quotaSvc.Suspend(c.Request.Context(), orgID, strings.TrimSpace(req.Reason)); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.quotaSvc.Snapshot(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResumeQuota(c *gin.Context) {
	orgID, ok := s.requireOrg(c)
	if !ok {
		return
	}

	if err := s.quotaSvc.Resume(c.Request.Context(), orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.quotaSvc.Snapshot(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateQuotaLimits(c *gin.Context) {
	orgID, ok := s.requireOrg(c)
	if !ok {
		return
	}

	var req quotadomain.UpdateLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quotaSvc.UpdateLimits(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
