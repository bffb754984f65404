package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/desklyhq/deskly/internal/auth/domain"
)

const sessionContextKey = "deskly.session"

// wantsJSON distinguishes API clients from browser navigation. API clients
// get status codes; browsers get redirected to the login or public path.
func wantsJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(c.ContentType(), "application/json") {
		return true
	}
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// AdminRequired gates a route group behind a valid session carrying the
// admin role claim.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			s.rejectUnauthenticated(c)
			return
		}

		sess, err := s.authSvc.Resolve(c.Request.Context(), token)
		if err != nil {
			s.sessions.Clear(c)
			s.rejectUnauthenticated(c)
			return
		}

		if !sess.IsAdmin() {
			if wantsJSON(c) {
				AbortWithError(c, ErrForbidden)
				return
			}
			c.Redirect(http.StatusFound, s.cfg.PublicPath)
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func (s *Server) rejectUnauthenticated(c *gin.Context) {
	if wantsJSON(c) {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.Redirect(http.StatusFound, s.cfg.LoginPath)
	c.Abort()
}

func sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*authdomain.Session)
	return sess, ok
}
