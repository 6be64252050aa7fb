package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/middleware"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/validators"
)

// StaffHandler manages the barbers working under a shop. Owner-gated at
// the route level.
type StaffHandler struct {
	db *gorm.DB
}

func NewStaffHandler(db *gorm.DB) *StaffHandler {
	return &StaffHandler{db: db}
}

type CreateBarberRequest struct {
	Name           string   `json:"name" binding:"required"`
	Email          string   `json:"email" binding:"required,email"`
	Password       string   `json:"password" binding:"required,min=6"`
	Phone          string   `json:"phone"`
	CommissionRate *float64 `json:"commission_rate"`
	LocationID     *uint    `json:"location_id"`
}

type UpdateBarberRequest struct {
	Name           *string  `json:"name"`
	Phone          *string  `json:"phone"`
	CommissionRate *float64 `json:"commission_rate"`
	LocationID     *uint    `json:"location_id"`
	Active         *bool    `json:"active"`
}

func (h *StaffHandler) List(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var barbers []models.User
	if err := h.db.
		Where("barbershop_id = ?", barbershopID).
		Order("id ASC").
		Find(&barbers).Error; err != nil {
		httperr.Internal(c, "failed_to_list_staff", "Could not list staff.")
		return
	}

	out := make([]gin.H, 0, len(barbers))
	for i := range barbers {
		b := &barbers[i]
		out = append(out, gin.H{
			"id":              b.ID,
			"name":            b.Name,
			"email":           b.Email,
			"phone":           b.Phone,
			"role":            b.Role,
			"active":          b.Active,
			"avatar_url":      b.AvatarURL,
			"commission_rate": b.CommissionRate,
			"location_id":     b.LocationID,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (h *StaffHandler) Create(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)

	var req CreateBarberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	email := validators.NormalizeEmail(req.Email)
	if !validators.IsEmailDomainValid(email) {
		httperr.BadRequest(c, "invalid_email_domain", "That email domain does not look valid.")
		return
	}

	var count int64
	h.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		httperr.Conflict(c, "email_already_exists", "An account with that email already exists.")
		return
	}

	if req.CommissionRate != nil && (*req.CommissionRate < 0 || *req.CommissionRate > 1) {
		httperr.BadRequest(c, "invalid_commission_rate", "Commission rate must be between 0 and 1.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Could not create the account.")
		return
	}

	barber := models.User{
		BarbershopID: barbershopID,
		LocationID:   req.LocationID,
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        req.Phone,
		Role:         "barber",
	}
	if req.CommissionRate != nil {
		barber.CommissionRate = *req.CommissionRate
	}

	if err := h.db.Create(&barber).Error; err != nil {
		httperr.Internal(c, "failed_to_create_barber", "Could not create the barber.")
		return
	}

	c.JSON(http.StatusCreated, userPayload(&barber))
}

func (h *StaffHandler) Update(c *gin.Context) {
	barbershopID := c.MustGet(middleware.ContextBarbershopID).(uint)
	id := c.Param("id")

	var barber models.User
	if err := h.db.
		Where("id = ? AND barbershop_id = ?", id, barbershopID).
		First(&barber).Error; err != nil {
		httperr.NotFound(c, "barber_not_found", "Barber not found.")
		return
	}

	var req UpdateBarberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid request body.")
		return
	}

	if req.Name != nil {
		barber.Name = *req.Name
	}
	if req.Phone != nil {
		barber.Phone = *req.Phone
	}
	if req.CommissionRate != nil {
		if *req.CommissionRate < 0 || *req.CommissionRate > 1 {
			httperr.BadRequest(c, "invalid_commission_rate", "Commission rate must be between 0 and 1.")
			return
		}
		barber.CommissionRate = *req.CommissionRate
	}
	if req.LocationID != nil {
		barber.LocationID = req.LocationID
	}
	if req.Active != nil {
		if barber.Role == "owner" && !*req.Active {
			httperr.BadRequest(c, "cannot_deactivate_owner", "The owner account cannot be deactivated.")
			return
		}
		barber.Active = *req.Active
	}

	if err := h.db.Save(&barber).Error; err != nil {
		httperr.Internal(c, "failed_to_update_barber", "Could not save the barber.")
		return
	}

	c.JSON(http.StatusOK, userPayload(&barber))
}
