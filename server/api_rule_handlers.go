package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/animalia-app/iam-service/models"
)

func (s *Server) HandleListRulesGin(c *gin.Context) {
	rules, err := s.Rules.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// HandleCreateRuleGin creates a domain mapping rule. Rules only apply on
// future resyncs; existing assignments are untouched.
func (s *Server) HandleCreateRuleGin(c *gin.Context) {
	var body struct {
		MatchType     string  `json:"matchType"`
		Pattern       string  `json:"pattern"`
		TargetGroupID *string `json:"targetGroupId"`
		TargetRole    *string `json:"targetRole"`
		Priority      int     `json:"priority"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	rule := models.DomainMappingRule{
		MatchType:     models.MatchType(strings.TrimSpace(body.MatchType)),
		Pattern:       strings.TrimSpace(body.Pattern),
		TargetGroupID: body.TargetGroupID,
		Priority:      body.Priority,
	}
	if body.TargetRole != nil {
		role := models.Role(strings.TrimSpace(*body.TargetRole))
		rule.TargetRole = &role
	}
	created, err := s.Rules.Create(c.Request.Context(), rule)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) HandleDeleteRuleGin(c *gin.Context) {
	if err := s.Rules.Delete(c.Request.Context(), strings.TrimSpace(c.Param("ruleId"))); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
