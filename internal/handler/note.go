package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/careloop/api/internal/model"
	"github.com/careloop/api/internal/policy"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NoteHandler struct {
	db *gorm.DB
}

func NewNoteHandler(db *gorm.DB) *NoteHandler {
	return &NoteHandler{db: db}
}

type CreateNoteRequest struct {
	PatientID int64  `json:"patientId" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Body      string `json:"body"`
}

// Create writes a note about one of the calling therapist's own patients.
func (h *NoteHandler) Create(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patientId and title are required"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create note"})
		return
	}

	if _, err := ownPatient(h.db, ident.ProfileID, req.PatientID); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
		}
		return
	}

	note := model.Note{
		PatientID:   req.PatientID,
		TherapistID: ident.ProfileID,
		Title:       req.Title,
		Body:        req.Body,
	}

	if err := policy.Can(ident, policy.ActionCreate, &note); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.db.Create(&note).Error; err != nil {
		log.Printf("Failed to create note: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create note"})
		return
	}

	c.JSON(http.StatusCreated, note)
}

// ListMine returns the notes attached to the caller: a therapist's authored
// notes, or the notes about the calling patient.
func (h *NoteHandler) ListMine(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}

	query := h.db.Order("created_at DESC")
	switch ident.Role {
	case model.RoleTherapist:
		query = query.Where("therapist_id = ?", ident.ProfileID)
	case model.RolePatient:
		query = query.Where("patient_id = ?", ident.ProfileID)
	}

	var notes []model.Note
	if err := query.Find(&notes).Error; err != nil {
		log.Printf("Failed to list notes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notes})
}

// ListForPatient returns the calling therapist's notes about one patient.
func (h *NoteHandler) ListForPatient(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}

	if _, err := ownPatient(h.db, ident.ProfileID, patientID); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
		}
		return
	}

	var notes []model.Note
	err = h.db.Where("patient_id = ? AND therapist_id = ?", patientID, ident.ProfileID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		log.Printf("Failed to list notes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) Get(c *gin.Context) {
	ident, note, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, note); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, note)
}

type UpdateNoteRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ident, note, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, note); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Body != nil {
		note.Body = *req.Body
	}

	if err := h.db.Save(note).Error; err != nil {
		log.Printf("Failed to update note: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update note"})
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	ident, note, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, note); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.db.Delete(note).Error; err != nil {
		log.Printf("Failed to delete note: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete note"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}

func (h *NoteHandler) load(c *gin.Context) (policy.Identity, *model.Note, bool) {
	noteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note ID"})
		return policy.Identity{}, nil, false
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load note"})
		return policy.Identity{}, nil, false
	}

	var note model.Note
	if err := h.db.First(&note, noteID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
		return policy.Identity{}, nil, false
	}

	return ident, &note, true
}
