package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/animalia-app/iam-service/permission"
)

// HandleGetEffectivePermissionsGin resolves and returns a user's effective
// permission set.
func (s *Server) HandleGetEffectivePermissionsGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	set, err := s.Resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// HandleGetOwnPermissionsGin resolves the authenticated caller's own set.
func (s *Server) HandleGetOwnPermissionsGin(c *gin.Context) {
	userID := GetUserIDFromContext(c)
	set, err := s.Resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// HandleCheckPermissionGin answers whether the user currently holds one
// permission code, e.g. ?code=animals.write.
func (s *Server) HandleCheckPermissionGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	code, err := permission.ParseCode(c.Query("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	set, err := s.Resolver.Resolve(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	held := make([]string, 0, len(set.EffectivePermissions))
	for _, ep := range set.EffectivePermissions {
		held = append(held, ep.Code)
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":  userID,
		"code":    code.String(),
		"allowed": permission.Allows(held, code),
	})
}

// HandleResyncUserGin re-evaluates domain mapping rules for the user and
// returns the freshly resolved set.
func (s *Server) HandleResyncUserGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	set, err := s.Resync.ResyncUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}
