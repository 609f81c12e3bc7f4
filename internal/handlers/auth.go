package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/middleware"
	"filegate/api/internal/models"
	"filegate/api/internal/service"
)

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	TOTPEnabled bool   `json:"totpEnabled"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        string(user.Role),
		TOTPEnabled: user.TwoFactor.Enabled(),
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "registered successfully",
		"email":   user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		sendError(c, err)
		return
	}

	if result.RequiresSecondFactor {
		c.JSON(http.StatusOK, gin.H{"requireTOTP": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": result.Token,
		"user":        toUserResponse(result.User),
	})
}

type loginTOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

func (h HandlerSet) LoginTOTP(c *gin.Context) {
	var req loginTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.VerifySecondFactor(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": result.Token,
		"user":        toUserResponse(result.User),
	})
}

func (h HandlerSet) TOTPSetup(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	enrollment, err := h.auth.EnrollSecondFactor(c.Request.Context(), user)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totpSetup": gin.H{
			"secret": enrollment.Secret,
			"qrCode": enrollment.QRCode,
			"url":    enrollment.URL,
		},
	})
}

type totpCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h HandlerSet) TOTPVerify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ConfirmSecondFactorEnrollment(c.Request.Context(), user, req.Code); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totpEnabled": true})
}

func (h HandlerSet) TOTPDisable(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req totpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.DisableSecondFactor(c.Request.Context(), user, req.Code); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totpEnabled": false})
}

func (h HandlerSet) Logout(c *gin.Context) {
	token, ok := middleware.AccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.auth.Revoke(c.Request.Context(), token); err != nil {
		sendError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	TOTPCode    string `json:"totpCode"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OldPassword == "" && req.TOTPCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either oldPassword or totpCode is required"})
		return
	}

	proof := service.PasswordProof{CurrentPassword: req.OldPassword, TOTPCode: req.TOTPCode}
	if err := h.auth.ChangePassword(c.Request.Context(), user, proof, req.NewPassword); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
