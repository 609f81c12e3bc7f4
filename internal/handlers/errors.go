package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/service"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrNoPendingChallenge),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotAvailable),
		errors.Is(err, service.ErrNotInvited):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrNotEnabled),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidWindow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sendError(c *gin.Context, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal_server_error"
	}
	c.JSON(status, gin.H{"error": message})
}
