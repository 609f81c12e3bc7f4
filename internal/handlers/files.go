package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/middleware"
	"filegate/api/internal/models"
	"filegate/api/internal/service"
)

func (h HandlerSet) ListMyFiles(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := service.ListQuery{
		Status: c.DefaultQuery("status", "all"),
		SortBy: c.DefaultQuery("sortBy", "createdAt"),
		Order:  c.DefaultQuery("order", "desc"),
		Page:   1,
		Limit:  20,
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		q.Limit = v
	}

	result, err := h.shares.List(c.Request.Context(), user.ID, q)
	if err != nil {
		sendError(c, err)
		return
	}

	files := make([]gin.H, 0, len(result.Files))
	for _, item := range result.Files {
		files = append(files, gin.H{
			"id":         item.Record.Token,
			"fileName":   item.Record.FileName,
			"status":     item.Status,
			"createdAt":  item.Record.CreatedAt,
			"shareToken": item.Record.Token,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"pagination": gin.H{
			"currentPage": result.Pagination.CurrentPage,
			"totalPages":  result.Pagination.TotalPages,
			"totalFiles":  result.Pagination.TotalFiles,
			"limit":       result.Pagination.Limit,
		},
		"summary": gin.H{
			"activeFiles":  result.Summary.Active,
			"pendingFiles": result.Summary.Pending,
			"expiredFiles": result.Summary.Expired,
		},
	})
}

func (h HandlerSet) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	availableFrom, err := parseTimeField(c.PostForm("availableFrom"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid datetime format, use ISO format"})
		return
	}
	availableTo, err := parseTimeField(c.PostForm("availableTo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid datetime format, use ISO format"})
		return
	}

	input := service.CreateShareInput{
		Owner:         user,
		FileName:      fileHeader.Filename,
		SizeBytes:     fileHeader.Size,
		Public:        parseBoolField(c.PostForm("isPublic")),
		Password:      c.PostForm("password"),
		SharedWith:    c.PostFormArray("sharedWith"),
		AvailableFrom: availableFrom,
		AvailableTo:   availableTo,
		RequireTOTP:   parseBoolField(c.PostForm("enableTOTP")),
	}

	rec, err := h.shares.Create(c.Request.Context(), input)
	if err != nil {
		sendError(c, err)
		return
	}

	response := gin.H{
		"success": true,
		"file":    toShareResponse(rec),
		"message": "upload successful",
	}

	// A share gated on TOTP needs the owner enrolled. Hand back the setup
	// artifact when this upload is what starts the enrollment.
	if rec.RequireTOTP && user.TwoFactor.State == models.TwoFactorDisabled {
		enrollment, err := h.auth.EnrollSecondFactor(c.Request.Context(), user)
		if err != nil {
			sendError(c, err)
			return
		}
		response["totpSetup"] = gin.H{
			"secret": enrollment.Secret,
			"qrCode": enrollment.QRCode,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h HandlerSet) DeleteFile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID := c.Param("fileID")
	if err := h.shares.Delete(c.Request.Context(), user, fileID); err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "file deleted successfully",
		"fileId":  fileID,
	})
}

func toShareResponse(rec models.ShareRecord) gin.H {
	return gin.H{
		"id":                rec.Token,
		"filename":          rec.FileName,
		"size":              rec.SizeBytes,
		"shareToken":        rec.Token,
		"ownerEmail":        rec.OwnerEmail,
		"isPublic":          rec.Public,
		"passwordProtected": rec.PasswordProtected(),
		"availableFrom":     rec.AvailableFrom,
		"availableTo":       rec.AvailableTo,
		"sharedWith":        rec.SharedWith,
		"totpEnabled":       rec.RequireTOTP,
		"createdAt":         rec.CreatedAt,
	}
}

func parseBoolField(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseTimeField(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
