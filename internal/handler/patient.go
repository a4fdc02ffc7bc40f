package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/careloop/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PatientHandler struct {
	db *gorm.DB
}

func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{db: db}
}

// List returns the calling therapist's patients; admins see everyone.
func (h *PatientHandler) List(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list patients"})
		return
	}

	query := h.db.Order("full_name")
	if ident.Role == model.RoleTherapist {
		query = query.Where("therapist_id = ?", ident.ProfileID)
	}

	var patients []model.Patient
	if err := query.Find(&patients).Error; err != nil {
		log.Printf("Failed to list patients: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list patients"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": patients})
}

func (h *PatientHandler) Get(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load patient"})
		return
	}

	if ident.Role == model.RoleAdmin {
		var p model.Patient
		if err := h.db.First(&p, patientID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		c.JSON(http.StatusOK, p)
		return
	}

	patient, err := ownPatient(h.db, ident.ProfileID, patientID)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
		}
		return
	}

	c.JSON(http.StatusOK, patient)
}

type UpdatePatientRequest struct {
	FullName      *string `json:"fullName"`
	Phone         *string `json:"phone"`
	DateOfBirth   *string `json:"dateOfBirth"`
	JournalAccess *bool   `json:"journalAccess"`
}

// Update lets the assigned therapist edit the patient record, including the
// journal_access switch that gates shared-journal reads.
func (h *PatientHandler) Update(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
		return
	}

	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update patient"})
		return
	}

	patient, err := ownPatient(h.db, ident.ProfileID, patientID)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
		}
		return
	}

	if req.FullName != nil {
		patient.FullName = *req.FullName
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = *req.DateOfBirth
	}
	if req.JournalAccess != nil {
		patient.JournalAccess = *req.JournalAccess
	}

	if err := h.db.Save(patient).Error; err != nil {
		log.Printf("Failed to update patient: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update patient"})
		return
	}

	c.JSON(http.StatusOK, patient)
}
