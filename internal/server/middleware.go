package server

import (
	"strings"

	obscontext "github.com/accordly/accordly/internal/observability/context"
	"github.com/accordly/accordly/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the acting organization from the X-Org-ID header
// and injects it into the request context. Authentication itself is an
// external collaborator; this server trusts the header it is handed.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))

		var orgID snowflake.ID
		if raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid organization id"))
				return
			}
			orgID = parsed
		} else if s.cfg.DefaultOrgID != 0 {
			orgID = snowflake.ID(s.cfg.DefaultOrgID)
		} else {
			AbortWithError(c, newValidationError("org_id", "missing_org_id", "X-Org-ID header is required"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
