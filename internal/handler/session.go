package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/careloop/api/internal/model"
	"github.com/careloop/api/internal/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionHandler struct {
	db *gorm.DB
}

func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{db: db}
}

type CreateSessionRequest struct {
	PatientID   int64     `json:"patientId" binding:"required"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	DurationMin int       `json:"durationMin"`
	Topic       string    `json:"topic"`
}

// Create schedules a session between the calling therapist and one of their
// own patients. New sessions start pending.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patientId and scheduledAt are required"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
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

	session := model.TherapySession{
		PatientID:   req.PatientID,
		TherapistID: ident.ProfileID,
		ScheduledAt: req.ScheduledAt,
		DurationMin: req.DurationMin,
		Topic:       req.Topic,
		Status:      model.StatusPending,
	}
	if session.DurationMin == 0 {
		session.DurationMin = 50
	}

	if err := h.db.Create(&session).Error; err != nil {
		log.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// List returns the caller's sessions, scoped by their side of the pair.
func (h *SessionHandler) List(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	query := h.db.Preload("Documents").Preload("Resources.Resource").Order("scheduled_at DESC")
	switch ident.Role {
	case model.RolePatient:
		query = query.Where("patient_id = ?", ident.ProfileID)
	case model.RoleTherapist:
		query = query.Where("therapist_id = ?", ident.ProfileID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []model.TherapySession
	if err := query.Find(&sessions).Error; err != nil {
		log.Printf("Failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *SessionHandler) Get(c *gin.Context) {
	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	h.db.Preload("Documents").Preload("Resources.Resource").First(session, session.ID)
	c.JSON(http.StatusOK, session)
}

type UpdateSessionRequest struct {
	ScheduledAt *time.Time `json:"scheduledAt"`
	DurationMin *int       `json:"durationMin"`
	Topic       *string    `json:"topic"`
	Status      *string    `json:"status"`
}

// Update is therapist-only. Status must be a known value; any known-to-known
// transition is accepted.
func (h *SessionHandler) Update(c *gin.Context) {
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Status != nil && !model.ValidSessionStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session status"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if req.ScheduledAt != nil {
		session.ScheduledAt = *req.ScheduledAt
	}
	if req.DurationMin != nil {
		session.DurationMin = *req.DurationMin
	}
	if req.Topic != nil {
		session.Topic = *req.Topic
	}
	if req.Status != nil {
		session.Status = *req.Status
	}

	if err := h.db.Save(session).Error; err != nil {
		log.Printf("Failed to update session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&model.SessionDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&model.SessionResource{}).Error; err != nil {
			return err
		}
		return tx.Delete(session).Error
	})
	if err != nil {
		log.Printf("Failed to delete session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

type AddDocumentRequest struct {
	Title     string `json:"title" binding:"required"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// AddDocument attaches homework metadata to a session. The blob is stored
// elsewhere under the returned storage key.
func (h *SessionHandler) AddDocument(c *gin.Context) {
	var req AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	doc := model.SessionDocument{
		SessionID:  session.ID,
		Title:      req.Title,
		StorageKey: strings.ReplaceAll(uuid.NewString(), "-", ""),
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	}
	if err := h.db.Create(&doc).Error; err != nil {
		log.Printf("Failed to add session document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add document"})
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *SessionHandler) DeleteDocument(c *gin.Context) {
	docID, err := strconv.ParseInt(c.Param("docId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document ID"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	result := h.db.Where("session_id = ? AND id = ?", session.ID, docID).Delete(&model.SessionDocument{})
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

type AttachResourceRequest struct {
	ResourceID int64 `json:"resourceId" binding:"required"`
}

// AttachResource links one of the therapist's own materials to the session.
func (h *SessionHandler) AttachResource(c *gin.Context) {
	var req AttachResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resourceId is required"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var resource model.Resource
	if err := h.db.First(&resource, req.ResourceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "material not found"})
		return
	}
	if resource.TherapistID != ident.ProfileID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	link := model.SessionResource{SessionID: session.ID, ResourceID: resource.ID}
	if err := h.db.Where("session_id = ? AND resource_id = ?", link.SessionID, link.ResourceID).
		FirstOrCreate(&link).Error; err != nil {
		log.Printf("Failed to attach resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach material"})
		return
	}

	h.db.Preload("Resource").First(&link, link.ID)
	c.JSON(http.StatusCreated, link)
}

func (h *SessionHandler) DetachResource(c *gin.Context) {
	resourceID, err := strconv.ParseInt(c.Param("resourceId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material ID"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	result := h.db.Where("session_id = ? AND resource_id = ?", session.ID, resourceID).
		Delete(&model.SessionResource{})
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "material not attached"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "material detached"})
}

type CompleteResourceRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// CompleteResource toggles the homework-done flag. The session's patient may
// do this too.
func (h *SessionHandler) CompleteResource(c *gin.Context) {
	resourceID, err := strconv.ParseInt(c.Param("resourceId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material ID"})
		return
	}

	var req CompleteResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "completed is required"})
		return
	}

	ident, session, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionRead, session); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var link model.SessionResource
	if err := h.db.Where("session_id = ? AND resource_id = ?", session.ID, resourceID).
		First(&link).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "material not attached"})
		return
	}

	link.Completed = *req.Completed
	if err := h.db.Save(&link).Error; err != nil {
		log.Printf("Failed to update session resource: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update material"})
		return
	}

	c.JSON(http.StatusOK, link)
}

func (h *SessionHandler) load(c *gin.Context) (policy.Identity, *model.TherapySession, bool) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return policy.Identity{}, nil, false
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return policy.Identity{}, nil, false
	}

	var session model.TherapySession
	if err := h.db.First(&session, sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return policy.Identity{}, nil, false
	}

	return ident, &session, true
}
