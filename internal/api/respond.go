package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"imgferry/internal/logging"
	"imgferry/internal/services"
)

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Error: message})
}

// fail maps err to a status and writes the error envelope. Server-side
// failures are logged; client mistakes are not.
func (s *Server) fail(c *gin.Context, message string, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, services.ErrResolution) {
		logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), message, "http_handler_error",
			logging.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, Error: err.Error()})
}
