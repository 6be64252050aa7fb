package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/media"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type MediaHandler struct {
	db    *gorm.DB
	media *media.Service
}

func NewMediaHandler(db *gorm.DB, mediaSvc *media.Service) *MediaHandler {
	return &MediaHandler{db: db, media: mediaSvc}
}

// UploadLogo replaces the shop logo. multipart field: "file".
func (h *MediaHandler) UploadLogo(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	if h.media == nil {
		httperr.Internal(c, "media_not_configured", "Uploads are not configured.")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httperr.BadRequest(c, "missing_file", "A file is required.")
		return
	}
	defer file.Close()

	url, err := h.media.Upload(c.Request.Context(), barbershopID, "logo", file)
	if err != nil {
		mapBusinessError(c, err, "upload_failed", "Could not upload the image.")
		return
	}

	if err := h.db.
		Model(&models.Barbershop{}).
		Where("id = ?", barbershopID).
		Update("logo_url", url).Error; err != nil {
		httperr.Internal(c, "failed_to_save_logo", "Could not save the logo.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logo_url": url})
}

// UploadAvatar replaces the signed-in barber's avatar.
func (h *MediaHandler) UploadAvatar(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	if h.media == nil {
		httperr.Internal(c, "media_not_configured", "Uploads are not configured.")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		httperr.BadRequest(c, "missing_file", "A file is required.")
		return
	}
	defer file.Close()

	url, err := h.media.Upload(c.Request.Context(), barbershopID, "avatars", file)
	if err != nil {
		mapBusinessError(c, err, "upload_failed", "Could not upload the image.")
		return
	}

	if err := h.db.
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("avatar_url", url).Error; err != nil {
		httperr.Internal(c, "failed_to_save_avatar", "Could not save the avatar.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}
