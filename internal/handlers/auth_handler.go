package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/config"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/validators"
)

type AuthHandler struct {
	db     *gorm.DB
	cache  *cache.Cache
	config *config.Config
}

func NewAuthHandler(db *gorm.DB, c *cache.Cache, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cache: c, config: cfg}
}

// --------- Requests ---------

type RegisterRequest struct {
	BarbershopName    string `json:"barbershop_name" binding:"required"`
	BarbershopSlug    string `json:"barbershop_slug" binding:"required"`
	BarbershopPhone   string `json:"barbershop_phone"`
	BarbershopAddress string `json:"barbershop_address"`
	Timezone          string `json:"timezone"`
	Currency          string `json:"currency"`

	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// --------- Handlers ---------

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"details": err.Error(),
		})
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.BarbershopSlug))

	var count int64
	h.db.Model(&models.Barbershop{}).Where("slug = ?", slug).Count(&count)
	if count > 0 {
		httperr.Conflict(c, "slug_already_exists", "That booking link is taken.")
		return
	}

	email := validators.NormalizeEmail(req.Email)
	if !validators.IsEmailDomainValid(email) {
		httperr.BadRequest(c, "invalid_email_domain", "That email domain does not look valid.")
		return
	}

	h.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		httperr.Conflict(c, "email_already_exists", "An account with that email already exists.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Could not create the account.")
		return
	}

	var shop models.Barbershop
	var user models.User

	err = h.db.Transaction(func(tx *gorm.DB) error {
		shop = models.Barbershop{
			Name:     req.BarbershopName,
			Slug:     slug,
			Phone:    req.BarbershopPhone,
			Address:  req.BarbershopAddress,
			Timezone: req.Timezone,
			Currency: strings.ToLower(req.Currency),
		}
		if err := tx.Create(&shop).Error; err != nil {
			return err
		}

		user = models.User{
			BarbershopID: shop.ID,
			Name:         req.Name,
			Email:        email,
			PasswordHash: string(hashed),
			Phone:        req.Phone,
			Role:         "owner",
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		// every shop starts with the default booking policy
		settings := models.BookingSettings{BarbershopID: shop.ID}
		return tx.Create(&settings).Error
	})
	if err != nil {
		httperr.Internal(c, "failed_to_register", "Could not create the account.")
		return
	}

	token, refresh, err := h.issueTokens(c, &user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not create the session.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":          userPayload(&user),
		"barbershop":    shopPayload(&shop),
		"token":         token,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"details": err.Error(),
		})
		return
	}

	email := validators.NormalizeEmail(req.Email)

	var user models.User
	if err := h.db.Preload("Barbershop").
		Where("email = ? AND active = ?", email, true).
		First(&user).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			httperr.Unauthorized(c, "invalid_credentials", "Email or password is wrong.")
			return
		}
		httperr.Internal(c, "internal_error", "Could not sign in.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "Email or password is wrong.")
		return
	}

	token, refresh, err := h.issueTokens(c, &user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not create the session.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          userPayload(&user),
		"barbershop":    shopPayload(&user.Barbershop),
		"token":         token,
		"refresh_token": refresh,
	})
}

// Refresh rotates the session: the presented refresh token is consumed and a
// new pair comes back. A stolen-then-reused token dies on first rotation.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Refresh token is required.")
		return
	}

	ctx := c.Request.Context()

	sess, ok, err := h.cache.GetSession(ctx, req.RefreshToken)
	if err != nil || !ok {
		httperr.Unauthorized(c, "invalid_refresh_token", "Session expired, sign in again.")
		return
	}
	_ = h.cache.DeleteSession(ctx, req.RefreshToken)

	var user models.User
	if err := h.db.Where("id = ? AND active = ?", sess.UserID, true).First(&user).Error; err != nil {
		httperr.Unauthorized(c, "invalid_refresh_token", "Session expired, sign in again.")
		return
	}

	token, refresh, err := h.issueTokens(c, &user)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Could not refresh the session.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Refresh token is required.")
		return
	}

	_ = h.cache.DeleteSession(c.Request.Context(), req.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --------- JWT + session ---------

func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	token, err := h.generateToken(user)
	if err != nil {
		return "", "", err
	}

	refresh := uuid.NewString()
	err = h.cache.SaveSession(c.Request.Context(), refresh, cache.Session{
		UserID:       user.ID,
		BarbershopID: user.BarbershopID,
		Role:         user.Role,
	})
	if err != nil {
		return "", "", err
	}

	return token, refresh, nil
}

func (h *AuthHandler) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":          user.ID,
		"barbershopId": user.BarbershopID,
		"role":         user.Role,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}

// --------- Payloads ---------

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"phone":         user.Phone,
		"role":          user.Role,
		"avatar_url":    user.AvatarURL,
		"barbershop_id": user.BarbershopID,
	}
}

func shopPayload(shop *models.Barbershop) gin.H {
	return gin.H{
		"id":       shop.ID,
		"name":     shop.Name,
		"slug":     shop.Slug,
		"phone":    shop.Phone,
		"address":  shop.Address,
		"timezone": shop.Timezone,
		"currency": shop.Currency,
		"logo_url": shop.LogoURL,
	}
}
