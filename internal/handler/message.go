package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/careloop/api/internal/middleware"
	"github.com/careloop/api/internal/model"
	"github.com/careloop/api/internal/policy"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageHandler struct {
	db *gorm.DB
}

func NewMessageHandler(db *gorm.DB) *MessageHandler {
	return &MessageHandler{db: db}
}

// pair resolves the conversation pair for the caller. A patient always talks
// to their assigned therapist; a therapist names the patient via patientId.
func (h *MessageHandler) pair(c *gin.Context, ident policy.Identity, patientIDParam string) (patientID, therapistID int64, ok bool) {
	switch ident.Role {
	case model.RolePatient:
		var p model.Patient
		if err := h.db.First(&p, ident.ProfileID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve conversation"})
			return 0, 0, false
		}
		return p.ID, p.TherapistID, true
	case model.RoleTherapist:
		if patientIDParam == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "patientId is required"})
			return 0, 0, false
		}
		pid, err := strconv.ParseInt(patientIDParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient ID"})
			return 0, 0, false
		}
		if _, err := ownPatient(h.db, ident.ProfileID, pid); err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			} else {
				c.JSON(http.StatusForbidden, gin.H{"error": "patient not assigned to caller"})
			}
			return 0, 0, false
		}
		return pid, ident.ProfileID, true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	return 0, 0, false
}

// List returns the pair's messages ascending by time. The client polls with
// ?since=<last seen id> to fetch only what is new.
func (h *MessageHandler) List(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	patientID, therapistID, ok := h.pair(c, ident, c.Query("patientId"))
	if !ok {
		return
	}

	query := h.db.Where("patient_id = ? AND therapist_id = ?", patientID, therapistID).
		Order("created_at ASC, id ASC")
	if since := c.Query("since"); since != "" {
		sinceID, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since parameter"})
			return
		}
		query = query.Where("id > ?", sinceID)
	}

	var messages []model.Message
	if err := query.Find(&messages).Error; err != nil {
		log.Printf("Failed to list messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}

type SendMessageRequest struct {
	Body       string         `json:"body" binding:"required"`
	PatientID  *int64         `json:"patientId"`
	Attachment datatypes.JSON `json:"attachment"`
}

// Send posts a message into the pair; the sender tag comes from the caller's
// role, never from the payload.
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	patientIDParam := ""
	if req.PatientID != nil {
		patientIDParam = strconv.FormatInt(*req.PatientID, 10)
	}
	patientID, therapistID, ok := h.pair(c, ident, patientIDParam)
	if !ok {
		return
	}

	sender := model.SenderPatient
	if ident.Role == model.RoleTherapist {
		sender = model.SenderTherapist
	}

	message := model.Message{
		PatientID:   patientID,
		TherapistID: therapistID,
		Sender:      sender,
		Body:        req.Body,
		Attachment:  req.Attachment,
	}
	if err := h.db.Create(&message).Error; err != nil {
		log.Printf("Failed to send message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	middleware.RecordMessageSent(sender)
	c.JSON(http.StatusCreated, message)
}

// MarkRead flags the counterpart's unread messages in the pair as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	patientID, therapistID, ok := h.pair(c, ident, c.Query("patientId"))
	if !ok {
		return
	}

	counterpart := model.SenderTherapist
	if ident.Role == model.RoleTherapist {
		counterpart = model.SenderPatient
	}

	result := h.db.Model(&model.Message{}).
		Where("patient_id = ? AND therapist_id = ? AND sender = ? AND read = ?",
			patientID, therapistID, counterpart, false).
		Update("read", true)
	if result.Error != nil {
		log.Printf("Failed to mark messages read: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": result.RowsAffected})
}

type UpdateMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// Update edits a message. Only its author may, regardless of which role the
// caller holds.
func (h *MessageHandler) Update(c *gin.Context) {
	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	ident, message, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionUpdate, message); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	message.Body = req.Body
	if err := h.db.Save(message).Error; err != nil {
		log.Printf("Failed to update message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	ident, message, ok := h.load(c)
	if !ok {
		return
	}

	if err := policy.Can(ident, policy.ActionDelete, message); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.db.Delete(message).Error; err != nil {
		log.Printf("Failed to delete message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (h *MessageHandler) load(c *gin.Context) (policy.Identity, *model.Message, bool) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return policy.Identity{}, nil, false
	}

	ident, err := identity(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return policy.Identity{}, nil, false
	}

	var message model.Message
	if err := h.db.First(&message, messageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return policy.Identity{}, nil, false
	}

	return ident, &message, true
}
