package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/services"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// getStatusCodeForError maps a service error type to an HTTP status.
func getStatusCodeForError(err *services.ServiceError) int {
	switch err.Type {
	case services.ErrTypeValidation:
		return http.StatusBadRequest
	case services.ErrTypeNotFound:
		return http.StatusNotFound
	case services.ErrTypeUnauthorized:
		return http.StatusUnauthorized
	case services.ErrTypeUpstream:
		return http.StatusBadGateway
	case services.ErrTypeDatabase, services.ErrTypeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body.
func respondError(c *gin.Context, log logger.Logger, err error) {
	serviceError, ok := services.AsServiceError(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "unclassified error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "unknown_error",
		})
		return
	}

	status := getStatusCodeForError(serviceError)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "%v", serviceError)
	}
	c.JSON(status, gin.H{
		"error": serviceError.Message,
		"code":  serviceError.Code,
		"type":  serviceError.Type,
	})
}

// badRequest answers a malformed request.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": message,
		"code":  services.ErrCodeInvalidInput,
		"type":  services.ErrTypeValidation,
	})
}
