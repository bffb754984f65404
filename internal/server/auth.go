package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Logout revokes the current session and clears the cookie. Always succeeds
// from the caller's point of view.
func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		_ = s.authSvc.Revoke(c.Request.Context(), token)
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Me returns the session behind the cookie, for the console shell to decide
// what to render before hitting any gated endpoint.
func (s *Server) Me(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sess, err := s.authSvc.Resolve(c.Request.Context(), token)
	if err != nil {
		s.sessions.Clear(c)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sess})
}
