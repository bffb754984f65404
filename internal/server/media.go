package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) UploadMedia(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_file", "file is required"))
		return
	}
	defer file.Close()

	resp, err := s.mediaSvc.Upload(c.Request.Context(), file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
