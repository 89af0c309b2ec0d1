package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HandleLoginURLGin returns the upstream provider's authorization URL with a
// fresh state value. The frontend redirects the browser there.
func (s *Server) HandleLoginURLGin(c *gin.Context) {
	if s.Login == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_implemented", "error_description": "no oauth provider configured"})
		return
	}
	url, state := s.Login.AuthCodeURL()
	c.JSON(http.StatusOK, gin.H{"url": url, "state": state})
}

// HandleAuthCallbackGin completes an upstream OAuth login: exchanges the
// code, upserts the user by verified email and triggers a best-effort
// permission resync before answering. A resync failure never blocks login.
func (s *Server) HandleAuthCallbackGin(c *gin.Context) {
	if s.Login == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "not_implemented", "error_description": "no oauth provider configured"})
		return
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "missing authorization code"})
		return
	}
	user, err := s.Login.CompleteLogin(c.Request.Context(), strings.TrimSpace(body.Code))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
