package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/models"
)

func policyResponse(p models.Policy) gin.H {
	return gin.H{
		"maxFileSizeMB":            p.MaxFileSizeMB,
		"minValidityHours":         p.MinValidityHours,
		"maxValidityDays":          p.MaxValidityDays,
		"defaultValidityDays":      p.DefaultValidityDays,
		"requirePasswordMinLength": p.MinPasswordLength,
	}
}

func (h HandlerSet) GetPolicy(c *gin.Context) {
	policy, err := h.policies.Get(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, policyResponse(policy))
}

type updatePolicyRequest struct {
	MaxFileSizeMB            *int `json:"maxFileSizeMB"`
	MinValidityHours         *int `json:"minValidityHours"`
	MaxValidityDays          *int `json:"maxValidityDays"`
	DefaultValidityDays      *int `json:"defaultValidityDays"`
	RequirePasswordMinLength *int `json:"requirePasswordMinLength"`
}

func (h HandlerSet) UpdatePolicy(c *gin.Context) {
	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.policies.Get(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}

	if req.MaxFileSizeMB != nil {
		policy.MaxFileSizeMB = *req.MaxFileSizeMB
	}
	if req.MinValidityHours != nil {
		policy.MinValidityHours = *req.MinValidityHours
	}
	if req.MaxValidityDays != nil {
		policy.MaxValidityDays = *req.MaxValidityDays
	}
	if req.DefaultValidityDays != nil {
		policy.DefaultValidityDays = *req.DefaultValidityDays
	}
	if req.RequirePasswordMinLength != nil {
		policy.MinPasswordLength = *req.RequirePasswordMinLength
	}

	if err := h.policies.Update(c.Request.Context(), policy); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "policy updated",
		"policy":  policyResponse(policy),
	})
}

func (h HandlerSet) Cleanup(c *gin.Context) {
	deleted, err := h.shares.Cleanup(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "cleanup complete",
		"deletedFiles": deleted,
		"timestamp":    time.Now().UTC(),
	})
}
