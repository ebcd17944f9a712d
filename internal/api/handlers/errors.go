package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/middleware"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
)

// statusFor maps an error kind to the HTTP status it is reported with.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body for err. Backend failures are logged and their
// detail is not echoed to the client.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	detail := apperr.DetailOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Printf("ERROR: %s %s [%s]: %v", c.Request.Method, c.FullPath(), c.GetString(middleware.ContextKeyRequestID), err)
		detail = "Internal server error"
	}
	c.JSON(status, gin.H{"error": detail, "kind": kind})
}

func respondValidation(c *gin.Context, format string, args ...any) {
	respondError(c, apperr.Validation(format, args...))
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, "Invalid %s", name)
		return 0, false
	}
	return id, true
}

// sessionUser returns the authenticated user id or writes a 401.
func sessionUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": apperr.KindAuthorization})
		return 0, false
	}
	return id, true
}
