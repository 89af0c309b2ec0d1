package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/animalia-app/iam-service/store"
)

func (s *Server) HandleListGroupsGin(c *gin.Context) {
	groups, err := s.Groups.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) HandleCreateGroupGin(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ColorTag    string `json:"colorTag"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	createdBy := GetUserIDFromContext(c)
	group, err := s.Groups.Create(c.Request.Context(), body.Name, body.Description, body.ColorTag, &createdBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (s *Server) HandleGetGroupGin(c *gin.Context) {
	group, err := s.Groups.Get(c.Request.Context(), strings.TrimSpace(c.Param("groupId")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// HandleUpdateGroupGin patches group metadata. Flipping is_active suspends or
// restores everything the group confers without touching memberships.
func (s *Server) HandleUpdateGroupGin(c *gin.Context) {
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ColorTag    *string `json:"colorTag"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	group, err := s.Groups.Update(c.Request.Context(), strings.TrimSpace(c.Param("groupId")), store.GroupUpdate{
		Name:        body.Name,
		Description: body.Description,
		ColorTag:    body.ColorTag,
		IsActive:    body.IsActive,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) HandleDeleteGroupGin(c *gin.Context) {
	if err := s.Groups.Delete(c.Request.Context(), strings.TrimSpace(c.Param("groupId"))); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleListGroupPermissionsGin(c *gin.Context) {
	groupID := strings.TrimSpace(c.Param("groupId"))
	perms, err := s.Groups.ListPermissions(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupId": groupID, "permissions": perms})
}

// HandleSetGroupPermissionsGin replaces the group's permission links with the
// given catalog ids.
func (s *Server) HandleSetGroupPermissionsGin(c *gin.Context) {
	var body struct {
		PermissionIDs []string `json:"permissionIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	if err := s.Groups.SetPermissions(c.Request.Context(), strings.TrimSpace(c.Param("groupId")), body.PermissionIDs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleListGroupMembersGin(c *gin.Context) {
	groupID := strings.TrimSpace(c.Param("groupId"))
	members, err := s.Memberships.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupId": groupID, "members": members})
}

// HandleAddGroupMemberGin adds one user to the group. Adding an existing
// member is a no-op.
func (s *Server) HandleAddGroupMemberGin(c *gin.Context) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	addedBy := GetUserIDFromContext(c)
	if err := s.Memberships.AddMember(c.Request.Context(), strings.TrimSpace(c.Param("groupId")), strings.TrimSpace(body.UserID), &addedBy); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleRemoveGroupMemberGin(c *gin.Context) {
	groupID := strings.TrimSpace(c.Param("groupId"))
	userID := strings.TrimSpace(c.Param("userId"))
	if err := s.Memberships.RemoveMember(c.Request.Context(), groupID, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) HandleListUserGroupsGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	groups, err := s.Memberships.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "groups": groups})
}

// HandleSetUserGroupsGin replaces the user's memberships with the given set
// in one transaction. Memberships that survive the replace keep their
// original joined_at.
func (s *Server) HandleSetUserGroupsGin(c *gin.Context) {
	var body struct {
		GroupIDs []string `json:"groupIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "malformed request body"})
		return
	}
	addedBy := GetUserIDFromContext(c)
	if err := s.Memberships.SetUserGroups(c.Request.Context(), strings.TrimSpace(c.Param("id")), body.GroupIDs, &addedBy); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
