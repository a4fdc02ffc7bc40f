package handler

import (
	"log"
	"net/http"

	"github.com/careloop/api/internal/auth"
	"github.com/careloop/api/internal/middleware"
	"github.com/careloop/api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthHandler(db *gorm.DB, jwtSecret string) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret}
}

type RegisterTherapistRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8"`
	FullName    string   `json:"fullName" binding:"required"`
	Phone       string   `json:"phone"`
	Approach    string   `json:"approach"`
	Specialties []string `json:"specialties"`
	Bio         string   `json:"bio"`
}

// RegisterTherapist creates a therapist account (admin only). The user row and
// the profile row are written in one transaction so a failure leaves nothing
// behind.
func (h *AuthHandler) RegisterTherapist(c *gin.Context) {
	var req RegisterTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var existing model.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register therapist"})
		return
	}

	code := auth.GenerateTherapistCode()
	user := model.User{
		Email:         req.Email,
		PasswordHash:  hash,
		Role:          model.RoleTherapist,
		TherapistCode: &code,
	}
	therapist := model.Therapist{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Approach:    req.Approach,
		Specialties: pq.StringArray(req.Specialties),
		Bio:         req.Bio,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		therapist.UserID = user.ID
		return tx.Create(&therapist).Error
	})
	if err != nil {
		log.Printf("Failed to register therapist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register therapist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":          user,
		"profile":       therapist,
		"therapistCode": code,
	})
}

type RegisterPatientRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8"`
	FullName      string `json:"fullName" binding:"required"`
	Phone         string `json:"phone"`
	DateOfBirth   string `json:"dateOfBirth"`
	TherapistCode string `json:"therapistCode"`
}

// RegisterPatient creates a patient account (admin or therapist). A therapist
// caller becomes the assigned therapist; an admin passes the target therapist's
// code.
func (h *AuthHandler) RegisterPatient(c *gin.Context) {
	var req RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var existing model.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	var therapistID int64
	switch middleware.MustUserRole(c) {
	case model.RoleTherapist:
		var t model.Therapist
		if err := h.db.Where("user_id = ?", middleware.MustUserID(c)).First(&t).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register patient"})
			return
		}
		therapistID = t.ID
	case model.RoleAdmin:
		if req.TherapistCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "therapistCode is required"})
			return
		}
		var therapistUser model.User
		if err := h.db.Where("therapist_code = ?", req.TherapistCode).First(&therapistUser).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "therapist not found"})
			return
		}
		var t model.Therapist
		if err := h.db.Where("user_id = ?", therapistUser.ID).First(&t).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "therapist not found"})
			return
		}
		therapistID = t.ID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register patient"})
		return
	}

	user := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	patient := model.Patient{
		TherapistID:   therapistID,
		FullName:      req.FullName,
		Phone:         req.Phone,
		DateOfBirth:   req.DateOfBirth,
		JournalAccess: true,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		patient.UserID = user.ID
		return tx.Create(&patient).Error
	})
	if err != nil {
		log.Printf("Failed to register patient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register patient"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"profile": patient,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		middleware.RecordLoginAttempt(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		middleware.RecordLoginAttempt(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(&user, h.jwtSecret)
	if err != nil {
		log.Printf("Failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	middleware.RecordLoginAttempt(true)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresIn": int(auth.TokenExpiry.Seconds()),
		"role":      user.Role,
		"name":      h.displayName(&user),
		"user":      user,
	})
}

func (h *AuthHandler) displayName(user *model.User) string {
	switch user.Role {
	case model.RoleTherapist:
		var t model.Therapist
		if err := h.db.Where("user_id = ?", user.ID).First(&t).Error; err == nil {
			return t.FullName
		}
	case model.RolePatient:
		var p model.Patient
		if err := h.db.Where("user_id = ?", user.ID).First(&p).Error; err == nil {
			return p.FullName
		}
	}
	return user.Email
}

// Me returns the current user and their role-specific profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.MustUserID(c)

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	resp := gin.H{"user": user}
	switch user.Role {
	case model.RoleTherapist:
		var t model.Therapist
		if err := h.db.Where("user_id = ?", user.ID).First(&t).Error; err == nil {
			resp["profile"] = t
		}
	case model.RolePatient:
		var p model.Patient
		if err := h.db.Where("user_id = ?", user.ID).First(&p).Error; err == nil {
			resp["profile"] = p
		}
	}

	c.JSON(http.StatusOK, resp)
}

type UpdateProfileRequest struct {
	FullName    *string   `json:"fullName"`
	Phone       *string   `json:"phone"`
	Approach    *string   `json:"approach"`
	Specialties *[]string `json:"specialties"`
	Bio         *string   `json:"bio"`
	DateOfBirth *string   `json:"dateOfBirth"`
}

// UpdateProfile updates the caller's own profile. Only fields present in the
// payload are written, so clearing a field to "" is a real update.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID := middleware.MustUserID(c)

	switch middleware.MustUserRole(c) {
	case model.RoleTherapist:
		var t model.Therapist
		if err := h.db.Where("user_id = ?", userID).First(&t).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if req.FullName != nil {
			t.FullName = *req.FullName
		}
		if req.Phone != nil {
			t.Phone = *req.Phone
		}
		if req.Approach != nil {
			t.Approach = *req.Approach
		}
		if req.Specialties != nil {
			t.Specialties = pq.StringArray(*req.Specialties)
		}
		if req.Bio != nil {
			t.Bio = *req.Bio
		}
		if err := h.db.Save(&t).Error; err != nil {
			log.Printf("Failed to update therapist profile: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
		c.JSON(http.StatusOK, t)
	case model.RolePatient:
		var p model.Patient
		if err := h.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if req.FullName != nil {
			p.FullName = *req.FullName
		}
		if req.Phone != nil {
			p.Phone = *req.Phone
		}
		if req.DateOfBirth != nil {
			p.DateOfBirth = *req.DateOfBirth
		}
		if err := h.db.Save(&p).Error; err != nil {
			log.Printf("Failed to update patient profile: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
		c.JSON(http.StatusOK, p)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "admins have no profile"})
	}
}
