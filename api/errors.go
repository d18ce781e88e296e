package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
)

// abortWithError maps the domain error kind to an HTTP status and a
// user-facing message. Upstream details never reach the client.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindGone:
		status = http.StatusGone
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": domain.UserMessage(err)})
}
