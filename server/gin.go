package server

import (
	"github.com/gin-gonic/gin"
)

// NewGinEngine builds a Gin router and registers all permission API routes.
// Everything except the login callback sits behind IdentityMiddleware.
func NewGinEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	// Public: completes an upstream OAuth login
	r.POST("/iam/v1/auth/callback", s.HandleAuthCallbackGin)
	r.GET("/iam/v1/auth/login-url", s.HandleLoginURLGin)

	api := r.Group("/iam/v1")
	api.Use(s.IdentityMiddleware())

	// Resolution
	api.GET("/me", s.HandleGetOwnPermissionsGin)
	api.GET("/users/:id/effective-permissions", s.HandleGetEffectivePermissionsGin)
	api.GET("/users/:id/effective-permissions/check", s.HandleCheckPermissionGin)
	api.POST("/users/:id/resync-permissions", s.HandleResyncUserGin)

	// Catalog and direct grants
	api.GET("/permissions", s.HandleListPermissionsGin)
	api.POST("/permissions/grant", s.HandleGrantPermissionGin)
	api.GET("/users/:id/grants", s.HandleListGrantsGin)
	api.DELETE("/users/:id/permissions/:permissionId", s.HandleRevokePermissionGin)
	api.DELETE("/users/:id/permissions/:permissionId/purge", s.HandlePurgeGrantGin)

	// Groups and memberships
	api.GET("/groups", s.HandleListGroupsGin)
	api.POST("/groups", s.HandleCreateGroupGin)
	api.GET("/groups/:groupId", s.HandleGetGroupGin)
	api.PUT("/groups/:groupId", s.HandleUpdateGroupGin)
	api.DELETE("/groups/:groupId", s.HandleDeleteGroupGin)
	api.GET("/groups/:groupId/permissions", s.HandleListGroupPermissionsGin)
	api.PUT("/groups/:groupId/permissions", s.HandleSetGroupPermissionsGin)
	api.GET("/groups/:groupId/members", s.HandleListGroupMembersGin)
	api.POST("/groups/:groupId/members", s.HandleAddGroupMemberGin)
	api.DELETE("/groups/:groupId/members/:userId", s.HandleRemoveGroupMemberGin)
	api.GET("/users/:id/groups", s.HandleListUserGroupsGin)
	api.PUT("/users/:id/groups", s.HandleSetUserGroupsGin)

	// Domain mapping rules
	api.GET("/mapping-rules", s.HandleListRulesGin)
	api.POST("/mapping-rules", s.HandleCreateRuleGin)
	api.DELETE("/mapping-rules/:ruleId", s.HandleDeleteRuleGin)

	return r
}
