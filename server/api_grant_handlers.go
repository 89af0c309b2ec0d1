package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleListPermissionsGin returns the permission catalog.
func (s *Server) HandleListPermissionsGin(c *gin.Context) {
	perms, err := s.Permissions.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// HandleGrantPermissionGin grants a permission directly to a user. Granting
// an already-active pair is a no-op; a revoked or expired row is reactivated.
func (s *Server) HandleGrantPermissionGin(c *gin.Context) {
	var body struct {
		UserID       string     `json:"userId"`
		PermissionID string     `json:"permissionId"`
		ExpiresAt    *time.Time `json:"expiresAt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	grantedBy := GetUserIDFromContext(c)
	grant, err := s.Grants.Grant(c.Request.Context(), strings.TrimSpace(body.UserID), strings.TrimSpace(body.PermissionID), &grantedBy, body.ExpiresAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// HandleRevokePermissionGin soft-revokes a direct grant. The row is kept for
// audit; revoking an already-revoked grant is a no-op.
func (s *Server) HandleRevokePermissionGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	permissionID := strings.TrimSpace(c.Param("permissionId"))
	if err := s.Grants.Revoke(c.Request.Context(), userID, permissionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// HandlePurgeGrantGin removes the grant row entirely, audit trail included.
func (s *Server) HandlePurgeGrantGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	permissionID := strings.TrimSpace(c.Param("permissionId"))
	if err := s.Grants.HardDelete(c.Request.Context(), userID, permissionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// HandleListGrantsGin lists all of a user's direct grant rows with derived
// status, including revoked and expired ones.
func (s *Server) HandleListGrantsGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	grants, err := s.Grants.ListForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	now := time.Now().UTC()
	type grantRow struct {
		ID           string     `json:"id"`
		PermissionID string     `json:"permissionId"`
		Status       string     `json:"status"`
		GrantedBy    *string    `json:"grantedBy,omitempty"`
		GrantedAt    time.Time  `json:"grantedAt"`
		ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	}
	rows := make([]grantRow, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, grantRow{
			ID:           g.ID,
			PermissionID: g.PermissionID,
			Status:       string(g.Status(now)),
			GrantedBy:    g.GrantedBy,
			GrantedAt:    g.GrantedAt,
			ExpiresAt:    g.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "grants": rows})
}
