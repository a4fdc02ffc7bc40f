package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/careloop/api/internal/model"
	"github.com/careloop/api/internal/policy"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResourceHandler struct {
	db *gorm.DB
}

func NewResourceHandler(db *gorm.DB) *ResourceHandler {
	return &ResourceHandler{db: db}
}

type CreateResourceRequest struct {
	Title       string         `json:"title" binding:"required"`
	ContentType string         `json:"contentType" binding:"required"`
	Content     string         `json:"content"`
	Metadata    datatypes.JSON `json:"metadata"`
}

// Create adds a material owned by the calling therapist.
func (h *ResourceHandler) Create(c *gin.Context) {
	var req CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and contentType are required"})
		return
	}

	if !model.ValidContentType(req.ContentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content type"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create material"})
		return
	}

	resource := model.Resource{
		TherapistID: ident.ProfileID,
		Title:       req.Title,
		ContentType: req.ContentType,
		Content:     req.Content,
		Metadata:    req.Metadata,
	}

	if err := h.db.Create(&resource).Error; err != nil {
		log.Printf("Failed to create resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create material"})
		return
	}

	c.JSON(http.StatusCreated, resource)
}

// List returns exactly the materials the caller may see: a therapist's own
// resources, or the share-link join for a patient.
func (h *ResourceHandler) List(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list materials"})
		return
	}

	var resources []model.Resource
	switch ident.Role {
	case model.RoleTherapist:
		err = h.db.Where("therapist_id = ?", ident.ProfileID).
			Order("created_at DESC").
			Find(&resources).Error
	case model.RolePatient:
		err = h.db.Joins("JOIN shared_resources ON shared_resources.resource_id = resources.id").
			Where("shared_resources.patient_id = ?", ident.ProfileID).
			Order("resources.created_at DESC").
			Find(&resources).Error
	}
	if err != nil {
		log.Printf("Failed to list resources: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list materials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resources})
}

func (h *ResourceHandler) Get(c *gin.Context) {
	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, access.Resource)
}

type UpdateResourceRequest struct {
	Title       *string         `json:"title"`
	ContentType *string         `json:"contentType"`
	Content     *string         `json:"content"`
	Metadata    *datatypes.JSON `json:"metadata"`
}

func (h *ResourceHandler) Update(c *gin.Context) {
	var req UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.ContentType != nil && !model.ValidContentType(*req.ContentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content type"})
		return
	}

	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	resource := access.Resource
	if req.Title != nil {
		resource.Title = *req.Title
	}
	if req.ContentType != nil {
		resource.ContentType = *req.ContentType
	}
	if req.Content != nil {
		resource.Content = *req.Content
	}
	if req.Metadata != nil {
		resource.Metadata = *req.Metadata
	}

	if err := h.db.Save(resource).Error; err != nil {
		log.Printf("Failed to update resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update material"})
		return
	}

	c.JSON(http.StatusOK, resource)
}

// Delete removes a material and cascades its share links, comments, favorites
// and session attachments in one transaction.
func (h *ResourceHandler) Delete(c *gin.Context) {
	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	resourceID := access.Resource.ID
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", resourceID).Delete(&model.SharedResource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&model.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&model.SessionResource{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Resource{}, resourceID).Error
	})
	if err != nil {
		log.Printf("Failed to delete resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete material"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "material deleted"})
}

type ShareResourceRequest struct {
	PatientIDs []int64 `json:"patientIds" binding:"required"`
}

// Share links a material to patients of the calling therapist. The whole
// batch commits or none of it does.
func (h *ResourceHandler) Share(c *gin.Context) {
	var req ShareResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patientIds is required"})
		return
	}

	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	for _, patientID := range req.PatientIDs {
		if _, err := ownPatient(h.db, ident.ProfileID, patientID); err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			} else {
				c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
			}
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, patientID := range req.PatientIDs {
			link := model.SharedResource{ResourceID: access.Resource.ID, PatientID: patientID}
			if err := tx.Where("resource_id = ? AND patient_id = ?", link.ResourceID, link.PatientID).
				FirstOrCreate(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to share resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to share material"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "material shared"})
}

// Unshare removes the share link only; the material itself stays.
func (h *ResourceHandler) Unshare(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("patientId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
		return
	}

	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	result := h.db.Where("resource_id = ? AND patient_id = ?", access.Resource.ID, patientID).
		Delete(&model.SharedResource{})
	if result.Error != nil {
		log.Printf("Failed to unshare resource: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unshare material"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "share link not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "material unshared"})
}

type AddCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *ResourceHandler) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	comment := model.Comment{
		ResourceID: access.Resource.ID,
		UserID:     ident.UserID,
		Body:       req.Body,
	}
	if err := h.db.Create(&comment).Error; err != nil {
		log.Printf("Failed to create comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *ResourceHandler) ListComments(c *gin.Context) {
	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var comments []model.Comment
	err := h.db.Where("resource_id = ?", access.Resource.ID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		log.Printf("Failed to list comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}

func (h *ResourceHandler) Favorite(c *gin.Context) {
	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, access); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	fav := model.Favorite{ResourceID: access.Resource.ID, UserID: ident.UserID}
	if err := h.db.Where("resource_id = ? AND user_id = ?", fav.ResourceID, fav.UserID).
		FirstOrCreate(&fav).Error; err != nil {
		log.Printf("Failed to favorite resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to favorite material"})
		return
	}

	c.JSON(http.StatusOK, fav)
}

func (h *ResourceHandler) Unfavorite(c *gin.Context) {
	ident, access, ok := h.loadAccess(c)
	if !ok {
		return
	}

	result := h.db.Where("resource_id = ? AND user_id = ?", access.Resource.ID, ident.UserID).
		Delete(&model.Favorite{})
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "favorite not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "favorite removed"})
}

// loadAccess loads the material from the :id param together with the caller's
// share-link fact; it writes the error response itself when something fails.
func (h *ResourceHandler) loadAccess(c *gin.Context) (policy.Identity, *policy.ResourceAccess, bool) {
	resourceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material ID"})
		return policy.Identity{}, nil, false
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load material"})
		return policy.Identity{}, nil, false
	}

	var resource model.Resource
	if err := h.db.First(&resource, resourceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
		return policy.Identity{}, nil, false
	}

	access := &policy.ResourceAccess{Resource: &resource}
	if ident.Role == model.RolePatient {
		var count int64
		h.db.Model(&model.SharedResource{}).
			Where("resource_id = ? AND patient_id = ?", resource.ID, ident.ProfileID).
			Count(&count)
		access.Shared = count > 0
	}

	return ident, access, true
}
