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

type TagHandler struct {
	db *gorm.DB
}

func NewTagHandler(db *gorm.DB) *TagHandler {
	return &TagHandler{db: db}
}

// List returns global ∪ own tags for a patient and every tag for a therapist
// or admin.
func (h *TagHandler) List(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tags"})
		return
	}

	var tags []model.Tag
	query := h.db.Order("type, name")
	if ident.Role == model.RolePatient {
		query = query.Where("is_global = ? OR patient_id = ?", true, ident.ProfileID)
	}
	if err := query.Find(&tags).Error; err != nil {
		log.Printf("Failed to list tags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tags})
}

type CreateTagRequest struct {
	Type string `json:"type" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// Create makes a personal tag for a patient caller or a global tag for an
// admin caller. Duplicate (type, name) within the same owner is rejected.
func (h *TagHandler) Create(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and name are required"})
		return
	}

	if !model.ValidTagType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag type"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create tag"})
		return
	}

	tag := model.Tag{Type: req.Type, Name: req.Name}
	if ident.Role == model.RoleAdmin {
		tag.IsGlobal = true
	} else {
		patientID := ident.ProfileID
		tag.PatientID = &patientID
	}

	if err := policy.Can(ident, policy.ActionCreate, &tag); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	dup := h.db.Where("type = ? AND name = ?", tag.Type, tag.Name)
	if tag.PatientID != nil {
		dup = dup.Where("patient_id = ?", *tag.PatientID)
	} else {
		dup = dup.Where("patient_id IS NULL")
	}
	var existing model.Tag
	if err := dup.First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate tag"})
		return
	}

	if err := h.db.Create(&tag).Error; err != nil {
		log.Printf("Failed to create tag: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, tag)
}

// Delete removes a tag the caller owns. Global tags are admin-only; deleting
// another patient's tag is forbidden either way.
func (h *TagHandler) Delete(c *gin.Context) {
	tagID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete tag"})
		return
	}

	var tag model.Tag
	if err := h.db.First(&tag, tagID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, &tag); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM journal_entry_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	if err != nil {
		log.Printf("Failed to delete tag: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete tag"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tag deleted"})
}
