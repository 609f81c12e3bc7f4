package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/middleware"
	"filegate/api/internal/service"
)

// ShareInfo returns what a requester may know about a share before
// presenting credentials. A share that is not active, or restricted to other
// people, reveals nothing about its password or TOTP gates — the evaluator's
// gate order guarantees that.
func (h HandlerSet) ShareInfo(c *gin.Context) {
	creds := service.Credentials{RequesterEmail: requesterEmail(c)}

	decision, err := h.access.Evaluate(c.Request.Context(), c.Param("token"), creds)
	switch {
	case err == nil,
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrInvalidCode):
		// Lifecycle and visibility passed; the prompt may render the
		// remaining gates.
		rec := decision.Record
		c.JSON(http.StatusOK, gin.H{
			"fileName":          rec.FileName,
			"size":              rec.SizeBytes,
			"status":            decision.Status,
			"passwordProtected": rec.PasswordProtected(),
			"totpRequired":      rec.RequireTOTP,
			"granted":           decision.Granted,
		})
	case errors.Is(err, service.ErrNotAvailable):
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "share_not_available",
			"status": decision.Status,
		})
	case errors.Is(err, service.ErrNotInvited):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_invited"})
	default:
		sendError(c, err)
	}
}

type shareAccessRequest struct {
	Password string `json:"password"`
	TOTPCode string `json:"totpCode"`
}

func (h HandlerSet) ShareAccess(c *gin.Context) {
	var req shareAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds := service.Credentials{
		RequesterEmail: requesterEmail(c),
		Password:       req.Password,
		TOTPCode:       req.TOTPCode,
	}

	decision, err := h.access.Evaluate(c.Request.Context(), c.Param("token"), creds)
	if err != nil {
		if errors.Is(err, service.ErrNotAvailable) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":  "share_not_available",
				"status": decision.Status,
			})
			return
		}
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"granted": true,
		"status":  decision.Status,
		"file":    toShareResponse(decision.Record),
	})
}

func requesterEmail(c *gin.Context) string {
	if user, ok := middleware.CurrentUser(c); ok {
		return user.Email
	}
	return ""
}
