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

type JournalHandler struct {
	db *gorm.DB
}

func NewJournalHandler(db *gorm.DB) *JournalHandler {
	return &JournalHandler{db: db}
}

type CreateEntryRequest struct {
	Title  string  `json:"title" binding:"required"`
	Body   string  `json:"body"`
	Mood   *int    `json:"mood"`
	Shared bool    `json:"shared"`
	TagIDs []int64 `json:"tagIds"`
}

// Create writes a journal entry for the calling patient.
func (h *JournalHandler) Create(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create entry"})
		return
	}

	entry := model.JournalEntry{
		PatientID: ident.ProfileID,
		Title:     req.Title,
		Body:      req.Body,
		Mood:      req.Mood,
		Shared:    req.Shared,
	}

	if err := policy.Can(ident, policy.ActionCreate, &entry); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	tags, err := h.visibleTags(ident, req.TagIDs)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "tag not visible to caller"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Model(&entry).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to create journal entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create entry"})
		return
	}

	h.db.Preload("Tags").Preload("Reflections").First(&entry, entry.ID)
	c.JSON(http.StatusCreated, entry)
}

// ListMine returns the calling patient's entries, newest first.
func (h *JournalHandler) ListMine(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}

	var entries []model.JournalEntry
	err = h.db.Where("patient_id = ?", ident.ProfileID).
		Preload("Tags").
		Preload("Reflections").
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		log.Printf("Failed to list journal entries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *JournalHandler) Get(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entry"})
		return
	}

	var entry model.JournalEntry
	err = h.db.Preload("Tags").Preload("Reflections").Preload("Patient").
		First(&entry, entryID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if err := policy.Can(ident, policy.ActionRead, &entry); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

type UpdateEntryRequest struct {
	Title  *string  `json:"title"`
	Body   *string  `json:"body"`
	Mood   *int     `json:"mood"`
	Shared *bool    `json:"shared"`
	TagIDs *[]int64 `json:"tagIds"`
}

// Update applies only the fields present in the payload; an explicit empty
// string or zero mood is written, an absent field keeps its value.
func (h *JournalHandler) Update(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update entry"})
		return
	}

	var entry model.JournalEntry
	if err := h.db.First(&entry, entryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, &entry); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Body != nil {
		entry.Body = *req.Body
	}
	if req.Mood != nil {
		entry.Mood = req.Mood
	}
	if req.Shared != nil {
		entry.Shared = *req.Shared
	}

	var tags []model.Tag
	if req.TagIDs != nil {
		tags, err = h.visibleTags(ident, *req.TagIDs)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "tag not visible to caller"})
			return
		}
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&entry).Error; err != nil {
			return err
		}
		if req.TagIDs != nil {
			return tx.Model(&entry).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to update journal entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update entry"})
		return
	}

	h.db.Preload("Tags").Preload("Reflections").First(&entry, entry.ID)
	c.JSON(http.StatusOK, entry)
}

func (h *JournalHandler) Delete(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
		return
	}

	var entry model.JournalEntry
	if err := h.db.First(&entry, entryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, &entry); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entry).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("journal_entry_id = ?", entry.ID).Delete(&model.Reflection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entry).Error
	})
	if err != nil {
		log.Printf("Failed to delete journal entry: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "entry deleted"})
}

type AddReflectionRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddReflection appends a reflection to the calling patient's own entry.
func (h *JournalHandler) AddReflection(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	var req AddReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add reflection"})
		return
	}

	var entry model.JournalEntry
	if err := h.db.First(&entry, entryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, &entry); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	reflection := model.Reflection{JournalEntryID: entry.ID, Body: req.Body}
	if err := h.db.Create(&reflection).Error; err != nil {
		log.Printf("Failed to add reflection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add reflection"})
		return
	}

	c.JSON(http.StatusCreated, reflection)
}

// ListShared returns a patient's shared entries to their assigned therapist.
// Unshared entries are filtered in the query and cannot appear here.
func (h *JournalHandler) ListShared(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}

	patient, err := ownPatient(h.db, ident.ProfileID, patientID)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		}
		return
	}

	if !patient.JournalAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "journal access disabled for this patient"})
		return
	}

	var entries []model.JournalEntry
	err = h.db.Where("patient_id = ? AND shared = ?", patient.ID, true).
		Preload("Tags").
		Preload("Reflections").
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		log.Printf("Failed to list shared entries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// visibleTags loads the given tags and checks each is visible to the caller.
func (h *JournalHandler) visibleTags(ident policy.Identity, tagIDs []int64) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		var tag model.Tag
		if err := h.db.First(&tag, tagID).Error; err != nil {
			return nil, err
		}
		if err := policy.Can(ident, policy.ActionRead, &tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
